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

import "context"

// Feeder drives decoded records through a Pipeline into a sink and runs the
// batch boundary after every batch of decoded records. The batch size is
// re-read from the settings at each boundary, never mid-batch.
type Feeder struct {
	ctx       context.Context
	base      *Base
	pipe      *Pipeline
	sink      func(Record) error
	batchSize int
	inBatch   int
	batches   int
}

// NewFeeder creates a feeder for one read.
func (b *Base) NewFeeder(ctx context.Context, pipe *Pipeline, sink func(Record) error) *Feeder {
	return &Feeder{
		ctx:       ctx,
		base:      b,
		pipe:      pipe,
		sink:      sink,
		batchSize: b.BatchSize(b.settings.Current()),
	}
}

// Feed processes one decoded record. It returns true once the read should
// stop, either because the selection is exhausted or on error.
func (f *Feeder) Feed(rec Record) (bool, error) {
	out, ok, err := f.pipe.Process(rec)
	if err != nil {
		return true, err
	}
	if ok {
		if err := f.sink(out); err != nil {
			return true, err
		}
	}
	if err := f.tick(); err != nil {
		return true, err
	}
	return f.pipe.Done(), nil
}

// Invalid reports a record that could not be decoded.
func (f *Feeder) Invalid(err error) error {
	if err := f.pipe.Invalid(err); err != nil {
		return err
	}
	return f.tick()
}

// Batches returns the number of completed batches.
func (f *Feeder) Batches() int { return f.batches }

// BatchSize returns the size of the current batch.
func (f *Feeder) BatchSize() int { return f.batchSize }

func (f *Feeder) tick() error {
	f.inBatch++
	if f.inBatch < f.batchSize {
		return nil
	}
	s, err := f.base.BatchBoundary(f.ctx)
	if err != nil {
		return err
	}
	f.batches++
	f.inBatch = 0
	f.batchSize = f.base.BatchSize(s)
	f.base.log.Debug("batch %d done, next batch size %d", f.batches, f.batchSize)
	return nil
}
