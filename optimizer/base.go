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

package optimizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/monitor"
	"github.com/rulego/streamopt/types"
)

const (
	// HighWaterMark is the pressure above which a batch boundary forces
	// reclamation.
	HighWaterMark = 0.8
	// CriticalWaterMark is the pressure above which caches are also cleared.
	CriticalWaterMark = 0.9
	// DefaultReclaimDelay is the pause after a forced reclamation.
	DefaultReclaimDelay = 10 * time.Millisecond
)

// Option configures a Base.
type Option func(*Base)

// WithSettings sets the settings source. Without it the optimizer uses a
// private store seeded with types.DefaultSettings.
func WithSettings(p types.SettingsProvider) Option {
	return func(b *Base) { b.settings = p }
}

// WithMonitor sets the resource monitor consulted at batch boundaries.
func WithMonitor(m types.ResourceMonitor) Option {
	return func(b *Base) { b.monitor = m }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Base) { b.log = l }
}

// WithReclaimDelay sets the pause after a forced reclamation.
func WithReclaimDelay(d time.Duration) Option {
	return func(b *Base) { b.reclaimDelay = d }
}

// WithHeapReader replaces the heap sampler used for peak tracking.
func WithHeapReader(fn func() uint64) Option {
	return func(b *Base) { b.heapFn = fn }
}

// Base implements the parts of Optimizer shared by every format.
type Base struct {
	format       string
	extensions   []string
	batchSize    func(types.Settings) int
	settings     types.SettingsProvider
	monitor      types.ResourceMonitor
	log          logger.Logger
	reclaimDelay time.Duration
	heapFn       func() uint64
	stats        *Collector
	closed       atomic.Bool

	cacheMu sync.Mutex
	cache   map[string]interface{}
}

// NewBase creates the shared part of a format optimizer. batchSize picks the
// format's batch size knob.
func NewBase(format string, extensions []string, batchSize func(types.Settings) int, opts ...Option) *Base {
	b := &Base{
		format:       format,
		extensions:   extensions,
		batchSize:    batchSize,
		reclaimDelay: DefaultReclaimDelay,
		stats:        NewCollector(),
		cache:        make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.settings == nil {
		b.settings = types.NewSettingsStore(types.DefaultSettings())
	}
	if b.heapFn == nil {
		b.heapFn = monitor.HeapBytes
	}
	b.log = logger.Named(b.log, format)
	return b
}

func (b *Base) Format() string           { return b.format }
func (b *Base) Extensions() []string     { return append([]string(nil), b.extensions...) }
func (b *Base) Logger() logger.Logger    { return b.log }
func (b *Base) Stats() *Collector        { return b.stats }
func (b *Base) Settings() types.Settings { return b.settings.Current() }

// BatchSize returns the format's batch size under s, at least 1.
func (b *Base) BatchSize(s types.Settings) int {
	if n := b.batchSize(s); n > 0 {
		return n
	}
	return 1
}

// GetMetrics returns a snapshot of the counters.
func (b *Base) GetMetrics() types.OptimizerStats {
	return b.stats.Snapshot(b.format)
}

// Reset clears caches and counters.
func (b *Base) Reset() {
	b.ClearCaches()
	b.stats.Reset()
}

// Shutdown clears caches and rejects further reads.
func (b *Base) Shutdown() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.ClearCaches()
	b.log.Debug("shut down")
	return nil
}

// CheckPath validates a read target and returns its file info.
func (b *Base) CheckPath(path string) (os.FileInfo, error) {
	if b.closed.Load() {
		return nil, types.NewValidationError("optimizer", b.format, "optimizer is shut down")
	}
	if strings.TrimSpace(path) == "" {
		return nil, types.NewValidationError("path", path, "empty file path")
	}
	if strings.ContainsRune(path, 0) {
		return nil, types.NewValidationError("path", path, "path contains NUL byte")
	}
	if !b.Accepts(path) {
		return nil, types.NewValidationError("path", path, "unsupported extension %q for %s, expected one of %v",
			filepath.Ext(path), b.format, b.extensions)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewValidationError("path", path, "file does not exist")
		}
		return nil, types.Wrap(b.format, path, "stat", err)
	}
	if info.IsDir() {
		return nil, types.NewValidationError("path", path, "is a directory")
	}
	return info, nil
}

// Accepts reports whether path carries one of the format's extensions.
func (b *Base) Accepts(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range b.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// UseStreaming decides the read path for a file of size bytes under s.
func (b *Base) UseStreaming(size int64, s types.Settings) bool {
	return s.EnableStreaming && size > s.MemoryLimitBytes()
}

// BatchBoundary runs between batches: it checks ctx, records the heap peak,
// relieves memory pressure and returns a fresh settings snapshot for the
// next batch.
func (b *Base) BatchBoundary(ctx context.Context) (types.Settings, error) {
	if err := ctx.Err(); err != nil {
		return types.Settings{}, err
	}
	b.stats.ObserveHeap(b.heapFn())

	if b.monitor != nil {
		pressure := b.monitor.PressureLevel()
		if pressure > HighWaterMark {
			if pressure > CriticalWaterMark {
				b.ClearCaches()
				b.stats.IncrementCacheClears()
			}
			b.monitor.ForceReclaim()
			b.stats.IncrementReclaims()
			b.log.Debug("memory pressure %.2f, reclaimed before next batch", pressure)
			if err := b.pause(ctx); err != nil {
				return types.Settings{}, err
			}
		}
	}
	return b.settings.Current(), nil
}

func (b *Base) pause(ctx context.Context) error {
	if b.reclaimDelay <= 0 {
		return nil
	}
	t := time.NewTimer(b.reclaimDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// CacheGet returns a cached value.
func (b *Base) CacheGet(key string) (interface{}, bool) {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	v, ok := b.cache[key]
	return v, ok
}

// CachePut stores a value when caching is enabled.
func (b *Base) CachePut(key string, v interface{}) {
	if !b.settings.Current().EnableCaching {
		return
	}
	b.cacheMu.Lock()
	b.cache[key] = v
	b.cacheMu.Unlock()
}

// CacheLen returns the number of cached entries.
func (b *Base) CacheLen() int {
	b.cacheMu.Lock()
	defer b.cacheMu.Unlock()
	return len(b.cache)
}

// ClearCaches drops every cached entry.
func (b *Base) ClearCaches() {
	b.cacheMu.Lock()
	b.cache = make(map[string]interface{})
	b.cacheMu.Unlock()
}

// CacheKey identifies a file version.
func CacheKey(kind, path string, info os.FileInfo) string {
	return kind + "|" + path + "|" + info.ModTime().UTC().Format(time.RFC3339Nano) + "|" + strconv.FormatInt(info.Size(), 10)
}

// Fail classifies err for the read of path during phase. Context errors
// are returned as is.
func (b *Base) Fail(path, phase string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return types.Wrap(b.format, path, phase, err)
}

// Run wraps one read: it checks opts and path, opens the timing scope and
// classifies the outcome. body receives the file info.
func (b *Base) Run(ctx context.Context, path string, opts ReadOptions, streaming func(os.FileInfo, types.Settings) bool,
	body func(ctx context.Context, info os.FileInfo, streaming bool) error) error {
	if err := opts.Check(); err != nil {
		b.stats.RecordFailure(err)
		return err
	}
	info, err := b.CheckPath(path)
	if err != nil {
		b.stats.RecordFailure(err)
		return err
	}
	settings := b.settings.Current()
	if settings.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.OperationTimeout)
		defer cancel()
	}
	useStreaming := streaming(info, settings)
	scope := b.stats.StartRead(useStreaming)
	b.stats.AddBytes(info.Size())
	b.log.Debug("read %s (%d bytes) streaming=%v", path, info.Size(), useStreaming)

	err = body(ctx, info, useStreaming)
	if errors.Is(err, ErrStop) {
		err = nil
	}
	err = b.Fail(path, "read", err)
	scope.End(err)
	return err
}

// Collect drives each into a slice. It backs OptimizeRead.
func Collect(ctx context.Context, path string, opts ReadOptions,
	each func(context.Context, string, ReadOptions, func(Record) error) error) ([]Record, error) {
	var out []Record
	if opts.MaxRecords > 0 && opts.MaxRecords < 1<<16 {
		out = make([]Record, 0, opts.MaxRecords)
	}
	err := each(ctx, path, opts, func(r Record) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
