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

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const orders = "id,name,total\n1,ann,50\n2,bob,150\n3,cyd,250\n"

func TestReadCommand(t *testing.T) {
	path := writeFile(t, "orders.csv", orders)
	out, err := run(t, "read", path, "--where", "total > 100", "--columns", "id,name")
	require.NoError(t, err)
	assert.Contains(t, out, "2 records")
	assert.Contains(t, out, "| id   | name |")
	assert.Contains(t, out, "| 2    | bob  |")
	assert.NotContains(t, out, "total")
}

func TestReadCommandJSONLines(t *testing.T) {
	path := writeFile(t, "events.ndjson", "{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n")
	out, err := run(t, "read", path, "--json", "--max-records", "2")
	require.NoError(t, err)

	var lines []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewBufferString(out))
	for sc.Scan() {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 2.0, lines[1]["a"])
}

func TestReadCommandSummary(t *testing.T) {
	path := writeFile(t, "orders.csv", orders)
	out, err := run(t, "read", path, "--summary", "--sample", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "3 records")
	assert.Contains(t, out, "health score")
	assert.Contains(t, out, "records processed")
}

func TestReadCommandErrors(t *testing.T) {
	_, err := run(t, "read", writeFile(t, "data.xml", "<a/>"))
	assert.Error(t, err)

	_, err = run(t, "read", writeFile(t, "orders.csv", orders), "--columns", "missing")
	assert.Error(t, err)

	_, err = run(t, "--log-level", "loud", "profiles")
	assert.Error(t, err)

	_, err = run(t, "read")
	assert.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	path := writeFile(t, "orders.csv", orders)
	out, err := run(t, "analyze", path, "--details")
	require.NoError(t, err)
	assert.Contains(t, out, "estimated records")
	assert.Contains(t, out, "columnar")
	assert.Contains(t, out, `"details"`)
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "memory-constrained")
	assert.Contains(t, out, "memory=critical")
	assert.Contains(t, out, "(5 rows)")
}

func TestSettingsAndProfileFiles(t *testing.T) {
	settings := writeFile(t, "settings.yaml", "memoryLimitMB: 256\njsonBatchSize: 200\n")
	profiles := writeFile(t, "profiles.yaml", `profiles:
  - name: nightly
    description: overnight batch loads
    priority: 5
    target:
      dataSize: xlarge
    settings:
      maxWorkers: 12
`)
	out, err := run(t, "--settings", settings, "--profiles", profiles, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "nightly")
	assert.Contains(t, out, "size=xlarge")
	assert.Contains(t, out, "(6 rows)")

	_, err = run(t, "--settings", filepath.Join(t.TempDir(), "missing.yaml"), "profiles")
	assert.Error(t, err)
}

func TestAuditDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "audit.db")
	_, err := run(t, "--audit-db", db, "read", writeFile(t, "orders.csv", orders))
	require.NoError(t, err)
	_, err = os.Stat(db)
	assert.NoError(t, err)
}
