// Package mods holds the capabilities the user toggles, each owning its own
// scanner session and freeze registry, plus the manager that drives them.
package mods

import (
	"sort"

	"github.com/vondutchi/vondutch-patcher/pkg/config"
	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

// Mod is one independent capability. Attach hands it a borrowed accessor,
// Detach must release everything it started (frozen values included), and
// Tick runs once per poll while the mod is enabled.
type Mod interface {
	Name() string
	Compatible(processName string) bool
	Attach(acc memaccess.Accessor)
	Detach()
	Tick()

	Enabled() bool
	SetEnabled(enabled bool)
}

// Manager owns the set of discovered mods.
type Manager struct {
	log  events.Log
	mods []Mod
}

// NewManager creates a manager reporting to the given log (may be nil).
func NewManager(log events.Log) *Manager {
	return &Manager{log: log}
}

// Discover populates the built-in mod set. Dynamic mod loading remains a
// placeholder, as in the original menu.
func (m *Manager) Discover() {
	m.mods = []Mod{
		NewGodMode(m.log),
		NewInfiniteAmmo(m.log),
	}
}

// Mods returns the discovered mods in name order.
func (m *Manager) Mods() []Mod {
	out := make([]Mod, len(m.mods))
	copy(out, m.mods)
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Find returns the mod with the given name, or nil.
func (m *Manager) Find(name string) Mod {
	for _, mod := range m.mods {
		if mod.Name() == name {
			return mod
		}
	}
	return nil
}

// AttachAll attaches every mod compatible with the named process.
func (m *Manager) AttachAll(acc memaccess.Accessor, processName string) {
	for _, mod := range m.mods {
		if mod.Compatible(processName) {
			mod.Attach(acc)
		}
	}
}

// DetachAll detaches every mod, clearing their freezes.
func (m *Manager) DetachAll() {
	for _, mod := range m.mods {
		mod.Detach()
	}
}

// Tick polls every enabled mod once.
func (m *Manager) Tick() {
	for _, mod := range m.mods {
		if mod.Enabled() {
			mod.Tick()
		}
	}
}

// Capture snapshots the enable flags into a profile for persistence.
func (m *Manager) Capture(profile *config.Profile) {
	for _, mod := range m.mods {
		profile.Mods[mod.Name()] = config.ModState{Enabled: mod.Enabled()}
	}
}

// Apply sets enable flags from a loaded profile. Mods absent from the
// profile keep their current state.
func (m *Manager) Apply(profile *config.Profile) {
	if profile == nil {
		return
	}
	for _, mod := range m.mods {
		if state, ok := profile.Mods[mod.Name()]; ok {
			mod.SetEnabled(state.Enabled)
		}
	}
}
