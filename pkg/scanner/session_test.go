package scanner

import (
	"errors"
	"testing"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

func TestSessionNarrowingFlow(t *testing.T) {
	acc := memaccess.NewFakeAccessor()
	engine := New(acc, events.NewMemoryLog())
	session := NewSession(engine)

	region := make([]byte, 32)
	putInt32(region, 4, 100)  // the field we are hunting
	putInt32(region, 20, 100) // a decoy that will not move
	acc.MapRegion(0x1000, region)

	if err := session.Begin(0x1000, 32); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// Target loses 10 from the real field only
	if err := acc.Poke(0x1004, memaccess.EncodeInt32(90)); err != nil {
		t.Fatalf("Poke failed: %v", err)
	}

	candidates, err := session.Delta(-10)
	if err != nil {
		t.Fatalf("Delta failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0] != 0x1004 {
		t.Fatalf("Expected [0x1004], got %v", candidates)
	}

	kept, err := session.Exact(90)
	if err != nil {
		t.Fatalf("Exact failed: %v", err)
	}
	if len(kept) != 1 || kept[0] != 0x1004 {
		t.Errorf("Expected [0x1004], got %v", kept)
	}

	if session.Stages() != 2 {
		t.Errorf("Expected 2 stages, got %d", session.Stages())
	}
}

func TestSessionSecondDeltaIntersects(t *testing.T) {
	acc := memaccess.NewFakeAccessor()
	engine := New(acc, events.NewMemoryLog())
	session := NewSession(engine)

	region := make([]byte, 32)
	putInt32(region, 0, 50)
	putInt32(region, 8, 50)
	acc.MapRegion(0x1000, region)

	if err := session.Begin(0x1000, 32); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// Both fields drop by 5: two candidates
	acc.Poke(0x1000, memaccess.EncodeInt32(45))
	acc.Poke(0x1008, memaccess.EncodeInt32(45))
	candidates, err := session.Delta(-5)
	if err != nil {
		t.Fatalf("Delta failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %v", candidates)
	}

	// Only the first drops again: the second stage keeps the survivor only
	acc.Poke(0x1000, memaccess.EncodeInt32(40))
	candidates, err = session.Delta(-5)
	if err != nil {
		t.Fatalf("Second delta failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0] != 0x1000 {
		t.Errorf("Expected [0x1000], got %v", candidates)
	}
}

func TestSessionUndo(t *testing.T) {
	acc := memaccess.NewFakeAccessor()
	engine := New(acc, events.NewMemoryLog())
	session := NewSession(engine)

	region := make([]byte, 16)
	putInt32(region, 0, 10)
	acc.MapRegion(0x1000, region)

	if err := session.Begin(0x1000, 16); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	acc.Poke(0x1000, memaccess.EncodeInt32(7))
	if _, err := session.Delta(-3); err != nil {
		t.Fatalf("Delta failed: %v", err)
	}

	// A filter run at the wrong moment wipes the candidates
	wiped, err := session.Exact(12345)
	if err != nil {
		t.Fatalf("Exact failed: %v", err)
	}
	if len(wiped) != 0 {
		t.Fatalf("Expected empty filter result, got %v", wiped)
	}

	// Undo restores the delta stage's output
	restored, err := session.Undo()
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if len(restored) != 1 || restored[0] != 0x1000 {
		t.Errorf("Expected [0x1000] after undo, got %v", restored)
	}
}

func TestSessionStageOrderErrors(t *testing.T) {
	acc := memaccess.NewFakeAccessor()
	engine := New(acc, events.NewMemoryLog())
	session := NewSession(engine)

	if _, err := session.Delta(-1); !errors.Is(err, ErrNoStage) {
		t.Errorf("Expected ErrNoStage before Begin, got %v", err)
	}
	if _, err := session.Exact(5); !errors.Is(err, ErrNoStage) {
		t.Errorf("Expected ErrNoStage before any delta, got %v", err)
	}
	if _, err := session.Undo(); !errors.Is(err, ErrNoStage) {
		t.Errorf("Expected ErrNoStage with empty history, got %v", err)
	}
}
