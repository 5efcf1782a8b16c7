/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package store persists applied adaptations and alert transitions to a
// SQLite database for later audit.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rulego/streamopt/adaptive"
	"github.com/rulego/streamopt/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS adaptations (
	id TEXT PRIMARY KEY,
	profile TEXT,
	trend TEXT,
	workload TEXT,
	changes TEXT,
	before_settings TEXT,
	after_settings TEXT,
	created_at DATETIME
);
CREATE TABLE IF NOT EXISTS alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT,
	instance_id TEXT,
	severity TEXT,
	metric TEXT,
	message TEXT,
	threshold REAL,
	value REAL,
	resolved INTEGER,
	created_at DATETIME
);
`

// Store is a SQLite audit log. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and its tables. ":memory:"
// opens a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" a single database and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordAdaptation stores an applied settings change.
func (s *Store) RecordAdaptation(c adaptive.SettingsChange) error {
	workload, err := json.Marshal(c.Workload)
	if err != nil {
		return err
	}
	changes, err := json.Marshal(c.Changes)
	if err != nil {
		return err
	}
	before, err := json.Marshal(c.Before)
	if err != nil {
		return err
	}
	after, err := json.Marshal(c.After)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO adaptations (id, profile, trend, workload, changes, before_settings, after_settings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Profile, string(c.Trend), workload, changes, before, after, c.Timestamp.UTC())
	return err
}

// RecentAdaptations returns up to n adaptations, newest first.
func (s *Store) RecentAdaptations(n int) ([]adaptive.SettingsChange, error) {
	rows, err := s.db.Query(`SELECT id, profile, trend, workload, changes, before_settings, after_settings, created_at
		FROM adaptations ORDER BY created_at DESC, rowid DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []adaptive.SettingsChange
	for rows.Next() {
		var (
			c                                adaptive.SettingsChange
			trend                            string
			workload, changes, before, after string
			createdAt                        time.Time
		)
		if err := rows.Scan(&c.ID, &c.Profile, &trend, &workload, &changes, &before, &after, &createdAt); err != nil {
			return nil, err
		}
		c.Trend = adaptive.PerformanceTrend(trend)
		c.Timestamp = createdAt
		for _, f := range []struct {
			raw string
			dst interface{}
		}{{workload, &c.Workload}, {changes, &c.Changes}, {before, &c.Before}, {after, &c.After}} {
			if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
				return nil, fmt.Errorf("decode adaptation %s: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordAlert stores an alert transition.
func (s *Store) RecordAlert(a types.Alert) error {
	at := a.UpdatedAt
	if at.IsZero() {
		at = a.CreatedAt
	}
	_, err := s.db.Exec(`INSERT INTO alerts (alert_id, instance_id, severity, metric, message, threshold, value, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.InstanceID, string(a.Severity), a.Metric, a.Message, a.Threshold, a.Value, a.Resolved, at.UTC())
	return err
}

// RecentAlerts returns up to n alert transitions, newest first. Each entry
// carries the transition time in UpdatedAt.
func (s *Store) RecentAlerts(n int) ([]types.Alert, error) {
	rows, err := s.db.Query(`SELECT alert_id, instance_id, severity, metric, message, threshold, value, resolved, created_at
		FROM alerts ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Alert
	for rows.Next() {
		var (
			a        types.Alert
			severity string
		)
		if err := rows.Scan(&a.ID, &a.InstanceID, &severity, &a.Metric, &a.Message, &a.Threshold, &a.Value, &a.Resolved, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Severity = types.AlertSeverity(severity)
		if a.Resolved {
			a.ResolvedAt = a.UpdatedAt
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
