// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/golang/snappy"
)

// Journal is an EventLog that writes events as snappy compressed JSON, one
// object per event.
type Journal struct {
	lock sync.Mutex
	w    *snappy.Writer
	enc  *json.Encoder
}

// NewJournal returns a journal writing to w. Close must be called to flush.
func NewJournal(w io.Writer) *Journal {
	sw := snappy.NewBufferedWriter(w)
	return &Journal{w: sw, enc: json.NewEncoder(sw)}
}

// Emit implements EventLog.
func (j *Journal) Emit(e Event) error {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.enc.Encode(e)
}

// Flush writes buffered events out.
func (j *Journal) Flush() error {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.w.Flush()
}

// Close flushes the journal. The underlying writer is left open.
func (j *Journal) Close() error {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.w.Close()
}

// ReadJournal decodes every event of a journal.
func ReadJournal(r io.Reader) ([]Event, error) {
	dec := json.NewDecoder(snappy.NewReader(r))
	var out []Event
	for {
		var e Event
		if err := dec.Decode(&e); err == io.EOF {
			return out, nil
		} else if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// Tee returns an EventLog that emits to every log in order, stopping at the
// first error.
func Tee(logs ...EventLog) EventLog {
	return tee(logs)
}

type tee []EventLog

func (t tee) Emit(e Event) error {
	for _, l := range t {
		if err := l.Emit(e); err != nil {
			return err
		}
	}
	return nil
}
