// Package scanner narrows down where a value of interest lives in a target
// process's memory.
//
// The workflow is snapshot, mutate, compare: capture a byte range, let the
// target change the value by a known amount (lose 5 health, fire 3 rounds),
// capture again, and keep every offset whose 4-byte little-endian view moved
// by exactly that delta. A final pass filters the survivors against a known
// exact value read live from the target. The delta scan slides one byte at a
// time, so fields need not be 4-byte aligned; the cost is CPU, the payoff is
// zero false negatives on packed structs.
package scanner

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

// ErrInvalidRegion is returned by TakeSnapshot for a zero base or length.
var ErrInvalidRegion = errors.New("scanner: invalid region")

// valueSize is the width of the scanned integer view. The engine interprets
// memory as little-endian signed 32-bit values throughout.
const valueSize = 4

// Snapshot is a point-in-time copy of a byte range of the target process.
// Immutable once produced; Data may be shorter than the requested length
// when the mapping ended early.
type Snapshot struct {
	Base uintptr
	Data []byte
}

// Len returns the number of bytes the snapshot actually captured.
func (s *Snapshot) Len() int {
	return len(s.Data)
}

// Engine runs the narrowing pipeline against one target process.
type Engine struct {
	acc memaccess.Accessor
	log events.Log
}

// New creates an engine over the given accessor. The log may be nil.
func New(acc memaccess.Accessor, log events.Log) *Engine {
	return &Engine{acc: acc, log: log}
}

// SetAccessor swaps the borrowed accessor, used when the supervisor
// re-attaches to a different process.
func (e *Engine) SetAccessor(acc memaccess.Accessor) {
	e.acc = acc
}

// TakeSnapshot captures up to length bytes starting at base. A short read
// yields a truncated snapshot rather than an error, because the target may
// have a smaller mapping than the caller guessed; only a fully failed read
// or an invalid region is an error.
func (e *Engine) TakeSnapshot(base uintptr, length int) (*Snapshot, error) {
	if e.acc == nil {
		return nil, memaccess.ErrInvalidHandle
	}
	if base == 0 || length <= 0 {
		return nil, fmt.Errorf("%w: base=%#x length=%d", ErrInvalidRegion, base, length)
	}

	var data []byte
	var err error
	if pr, ok := e.acc.(memaccess.PartialReader); ok {
		data, err = pr.ReadPartial(base, length)
	} else {
		data, err = e.acc.Read(base, length)
	}
	if err != nil {
		events.Report(e.log, events.SnapshotTaken, events.Error, "snapshot read failed at %#x: %v", base, err)
		return nil, err
	}

	events.Report(e.log, events.SnapshotTaken, events.Info, "snapshot of %d bytes at %#x", len(data), base)
	return &Snapshot{Base: base, Data: data}, nil
}

// CompareSnapshots returns the addresses whose 4-byte little-endian signed
// value changed by exactly expectedDelta between the two snapshots. Both
// snapshots should cover the same base; only the common prefix by length is
// compared. The window slides one byte at a time and candidates come out in
// ascending address order. Pure function of its inputs.
func (e *Engine) CompareSnapshots(previous, current *Snapshot, expectedDelta int32) []uintptr {
	var results []uintptr

	count := len(previous.Data)
	if len(current.Data) < count {
		count = len(current.Data)
	}

	for i := 0; i+valueSize <= count; i++ {
		prevValue := int32(binary.LittleEndian.Uint32(previous.Data[i:]))
		currValue := int32(binary.LittleEndian.Uint32(current.Data[i:]))
		if currValue-prevValue == expectedDelta {
			results = append(results, previous.Base+uintptr(i))
		}
	}

	events.Report(e.log, events.CandidatesNarrowed, events.Info, "scan narrowed to %d candidates", len(results))
	return results
}

// FilterCandidates keeps only the candidates that currently hold
// expectedValue, determined by a fresh live read of each address. Call it
// right after an observable in-game event, since the answer depends on when
// the target is looked at. A read failure on one candidate drops just that
// candidate; one unmapped page must not invalidate the rest of the scan.
// The input slice is never modified; a new slice is returned.
func (e *Engine) FilterCandidates(candidates []uintptr, expectedValue int32) []uintptr {
	filtered := make([]uintptr, 0, len(candidates))
	if e.acc == nil {
		events.Report(e.log, events.CandidatesNarrowed, events.Warning, "exact filter skipped: no process attached")
		return filtered
	}

	for _, address := range candidates {
		value, err := memaccess.ReadInt32(e.acc, address)
		if err != nil {
			continue
		}
		if value == expectedValue {
			filtered = append(filtered, address)
		}
	}

	events.Report(e.log, events.CandidatesNarrowed, events.Info, "exact filter kept %d of %d candidates", len(filtered), len(candidates))
	return filtered
}
