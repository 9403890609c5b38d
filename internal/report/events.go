// Copyright (c) 2016 Western Digital Corporation or its affiliates. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"sync"

	"github.com/westerndigitalcorporation/mirrorvr/internal/classify"
	"github.com/westerndigitalcorporation/mirrorvr/internal/core"
)

// EventCode identifies an event log message.
type EventCode uint32

const (
	EventNone EventCode = iota
	EventSectorReconstructed
	EventLBAStampError
	EventCoherencyError
	EventExpectedCoherencyError
	EventDataChecksumError
	EventUncorrectableSector
	EventSectorInvalidated
	EventCorrectingWithNewData
	numEventCodes
)

// Severity of an event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

var eventInfo = [numEventCodes]struct {
	name     string
	severity Severity
}{
	EventNone:                   {"none", SeverityInfo},
	EventSectorReconstructed:    {"sector_reconstructed", SeverityInfo},
	EventLBAStampError:          {"lba_stamp_error", SeverityError},
	EventCoherencyError:         {"coherency_error", SeverityError},
	EventExpectedCoherencyError: {"expected_coherency_error", SeverityInfo},
	EventDataChecksumError:      {"data_checksum_error", SeverityError},
	EventUncorrectableSector:    {"uncorrectable_sector", SeverityError},
	EventSectorInvalidated:      {"sector_invalidated", SeverityError},
	EventCorrectingWithNewData:  {"correcting_with_new_data", SeverityInfo},
}

func (c EventCode) String() string {
	if c < numEventCodes {
		return eventInfo[c].name
	}
	return fmt.Sprintf("event(%d)", uint32(c))
}

// Severity returns the severity of the event.
func (c EventCode) Severity() Severity {
	if c < numEventCodes {
		return eventInfo[c].severity
	}
	return SeverityError
}

// Event is one message for the event log.
type Event struct {
	Code     EventCode
	Group    uint32
	Position core.Position
	LBA      core.LBA
	Blocks   uint32
	Info     classify.Bits
	Extra    uint32

	// AgainstGroup is set when the event is logged against the whole group
	// instead of Position.
	AgainstGroup bool
}

func (e Event) String() string {
	return fmt.Sprintf("%s grp %d pos %d lba 0x%x blocks 0x%x info 0x%x [%s] extra 0x%x",
		e.Code, e.Group, e.Position, e.LBA, e.Blocks, uint32(e.Info), e.Info, e.Extra)
}

// EventLog receives events.
type EventLog interface {
	Emit(e Event) error
}

// EventBuffer is an EventLog that keeps events in memory.
type EventBuffer struct {
	lock   sync.Mutex
	events []Event
}

// Emit implements EventLog.
func (b *EventBuffer) Emit(e Event) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.events = append(b.events, e)
	return nil
}

// Events returns a copy of every event emitted so far.
func (b *EventBuffer) Events() []Event {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]Event(nil), b.events...)
}

// Count returns how many events match code and position.
func (b *EventBuffer) Count(code EventCode, pos core.Position) int {
	b.lock.Lock()
	defer b.lock.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Code == code && e.Position == pos {
			n++
		}
	}
	return n
}

// Reset drops every event.
func (b *EventBuffer) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.events = nil
}
