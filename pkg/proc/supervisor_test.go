package proc

import (
	"testing"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
)

func TestIsBlocked(t *testing.T) {
	cases := []struct {
		name    string
		blocked bool
	}{
		{"cs2.exe", true},
		{"CS2.EXE", true},
		{"Valorant.exe", true},
		{"fortnite.exe", true},
		{"apex.exe", true},
		{"overwatch.exe", true},
		{"notepad.exe", false},
		{"cs2.exe.bak", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsBlocked(tc.name); got != tc.blocked {
			t.Errorf("IsBlocked(%q): expected %v, got %v", tc.name, tc.blocked, got)
		}
	}
}

func TestDetachWithoutAttach(t *testing.T) {
	s := NewSupervisor(events.NewMemoryLog())

	// Idempotent and safe when nothing is attached
	s.Detach()
	s.Detach()
	if s.Attached() {
		t.Error("Expected not attached")
	}
	if s.Current() != nil {
		t.Error("Expected nil session")
	}
}

func TestListAnnotatesAndSorts(t *testing.T) {
	s := NewSupervisor(events.NewMemoryLog())

	infos, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for i, info := range infos {
		if info.Name == "" {
			t.Errorf("Entry %d has empty name", i)
		}
		if info.Blocked != IsBlocked(info.Name) {
			t.Errorf("Entry %s: Blocked flag disagrees with IsBlocked", info.Name)
		}
	}
}
