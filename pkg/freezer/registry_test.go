package freezer

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

const testInterval = 5 * time.Millisecond

func newTestRegistry(t *testing.T) (*Registry, *memaccess.FakeAccessor) {
	t.Helper()
	acc := memaccess.NewFakeAccessor()
	acc.MapRegion(0x1000, make([]byte, 64))
	reg := NewWithInterval(acc, events.NewMemoryLog(), testInterval)
	t.Cleanup(reg.Clear)
	return reg, acc
}

// pollUntil retries check every millisecond up to a generous deadline.
func pollUntil(t *testing.T, what string, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestFreezeWins(t *testing.T) {
	reg, acc := newTestRegistry(t)

	frozen := memaccess.EncodeInt32(999)
	reg.Freeze(0x1000, frozen)

	// Simulate the target writing its own value; the registry must
	// re-assert the frozen one within an interval or two.
	if err := acc.Poke(0x1000, memaccess.EncodeInt32(3)); err != nil {
		t.Fatalf("Poke failed: %v", err)
	}

	pollUntil(t, "frozen value reassertion", func() bool {
		buf, err := acc.Peek(0x1000, 4)
		return err == nil && bytes.Equal(buf, frozen)
	})
}

func TestClearStopsReassertion(t *testing.T) {
	reg, acc := newTestRegistry(t)

	reg.Freeze(0x1000, memaccess.EncodeInt32(999))
	pollUntil(t, "first freeze write", func() bool {
		buf, err := acc.Peek(0x1000, 4)
		return err == nil && bytes.Equal(buf, memaccess.EncodeInt32(999))
	})

	reg.Clear()
	if reg.Active() {
		t.Error("Expected maintenance loop stopped after Clear")
	}

	// A direct write after Clear must stick: no write from the registry is
	// observable once Clear has returned.
	direct := memaccess.EncodeInt32(42)
	if err := acc.Poke(0x1000, direct); err != nil {
		t.Fatalf("Poke failed: %v", err)
	}
	time.Sleep(20 * testInterval)
	buf, err := acc.Peek(0x1000, 4)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if !bytes.Equal(buf, direct) {
		t.Errorf("Expected directly-written value to persist after Clear, got %v", buf)
	}
}

func TestRefreezeReplacesEntry(t *testing.T) {
	reg, acc := newTestRegistry(t)

	reg.Freeze(0x1000, memaccess.EncodeInt32(1))
	reg.Freeze(0x1000, memaccess.EncodeInt32(2))

	entries := reg.Entries()
	if len(entries) != 1 {
		t.Fatalf("Expected exactly one entry for the address, got %d", len(entries))
	}
	if !bytes.Equal(entries[0].Value, memaccess.EncodeInt32(2)) {
		t.Errorf("Expected the second value to win, got %v", entries[0].Value)
	}

	pollUntil(t, "second value to be written", func() bool {
		buf, err := acc.Peek(0x1000, 4)
		return err == nil && bytes.Equal(buf, memaccess.EncodeInt32(2))
	})
}

func TestWriteFailureDoesNotStopSweep(t *testing.T) {
	reg, acc := newTestRegistry(t)

	// First entry's page is unwritable; the second must still be maintained.
	acc.DenyWrites(0x1000, 0x1004)
	reg.Freeze(0x1000, memaccess.EncodeInt32(5))
	reg.Freeze(0x1010, memaccess.EncodeInt32(6))

	pollUntil(t, "second entry maintained despite first failing", func() bool {
		buf, err := acc.Peek(0x1010, 4)
		return err == nil && bytes.Equal(buf, memaccess.EncodeInt32(6))
	})

	// The page becomes writable again: freezing resumes opportunistically.
	acc.AllowAll()
	pollUntil(t, "first entry maintained after page returns", func() bool {
		buf, err := acc.Peek(0x1000, 4)
		return err == nil && bytes.Equal(buf, memaccess.EncodeInt32(5))
	})
}

func TestFreezeFailureReported(t *testing.T) {
	acc := memaccess.NewFakeAccessor()
	acc.MapRegion(0x1000, make([]byte, 16))
	acc.DenyWrites(0x1000, 0x1010)
	log := events.NewMemoryLog()
	reg := NewWithInterval(acc, log, testInterval)
	defer reg.Clear()

	reg.Freeze(0x1000, memaccess.EncodeInt32(1))

	pollUntil(t, "write failure event", func() bool {
		for _, e := range log.Events() {
			if e.Type == events.FreezeWriteFailed && e.Severity == events.Warning {
				return true
			}
		}
		return false
	})
}

func TestConcurrentFreezeAndClear(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reg.Freeze(uintptr(0x1000+4*(i%8)), memaccess.EncodeInt32(int32(g*100+i)))
			}
		}(g)
	}
	wg.Wait()

	entries := reg.Entries()
	if len(entries) > 8 {
		t.Errorf("Expected at most 8 distinct addresses, got %d entries", len(entries))
	}

	reg.Clear()
	if len(reg.Entries()) != 0 {
		t.Error("Expected empty table after Clear")
	}
	if reg.Active() {
		t.Error("Expected loop stopped after Clear")
	}

	// Registry restarts cleanly after a Clear
	reg.Freeze(0x1000, memaccess.EncodeInt32(7))
	if !reg.Active() {
		t.Error("Expected loop running again after re-freeze")
	}
}

func TestRevokedHandleDoesNotCrashLoop(t *testing.T) {
	reg, acc := newTestRegistry(t)

	reg.Freeze(0x1000, memaccess.EncodeInt32(1))
	acc.Revoke()

	// The loop keeps ticking, reporting failures, until cleared.
	time.Sleep(10 * testInterval)
	if !reg.Active() {
		t.Error("Expected loop still running against a revoked handle")
	}
	reg.Clear()
}
