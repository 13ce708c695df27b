package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, events.NewMemoryLog())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	profile := NewProfile()
	profile.Mods["God Mode"] = ModState{Enabled: true}
	profile.Mods["Infinite Ammo"] = ModState{Enabled: false}
	profile.Addresses["God Mode"] = 0x7FF6A1B2C3D4

	if err := store.Save("game.exe", profile); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load("game.exe")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected a profile, got nil")
	}
	if !loaded.Mods["God Mode"].Enabled {
		t.Error("Expected God Mode enabled")
	}
	if loaded.Mods["Infinite Ammo"].Enabled {
		t.Error("Expected Infinite Ammo disabled")
	}
	if loaded.Addresses["God Mode"] != 0x7FF6A1B2C3D4 {
		t.Errorf("Expected saved address, got %#x", loaded.Addresses["God Mode"])
	}
}

func TestStoreMissingProfile(t *testing.T) {
	store, err := NewStore(t.TempDir(), events.NewMemoryLog())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Missing profile is a warning, not an error
	profile, err := store.Load("never-seen.exe")
	if err != nil {
		t.Errorf("Expected no error for missing profile, got %v", err)
	}
	if profile != nil {
		t.Errorf("Expected nil profile, got %+v", profile)
	}
}

func TestStoreSanitizesFilenames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	profile := NewProfile()
	profile.Mods["God Mode"] = ModState{Enabled: true}
	if err := store.Save("My Game: Remastered", profile); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "My_Game__Remastered.yaml")); err != nil {
		t.Errorf("Expected sanitized filename, stat failed: %v", err)
	}

	loaded, err := store.Load("My Game: Remastered")
	if err != nil || loaded == nil {
		t.Fatalf("Load through the same sanitization failed: %v", err)
	}
}

func TestStoreRejectsCorruptProfile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.exe.yaml"), []byte("\tnot yaml"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	if _, err := store.Load("bad.exe"); err == nil {
		t.Error("Expected error loading corrupt profile")
	}
}
