package mods

import (
	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/freezer"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
	"github.com/vondutchi/vondutch-patcher/pkg/scanner"
)

// defaultAmmo is used until the user sets a magazine size.
const defaultAmmo int32 = 999

// InfiniteAmmo pins the target's ammo count once its address is resolved.
type InfiniteAmmo struct {
	log     events.Log
	enabled bool
	acc     memaccess.Accessor

	engine   *scanner.Engine
	session  *scanner.Session
	registry *freezer.Registry

	address uintptr
	maxAmmo int32
}

// NewInfiniteAmmo creates the mod, disabled, with no target attached.
func NewInfiniteAmmo(log events.Log) *InfiniteAmmo {
	return &InfiniteAmmo{log: log}
}

func (m *InfiniteAmmo) Name() string { return "Infinite Ammo" }

func (m *InfiniteAmmo) Compatible(processName string) bool {
	return processName != ""
}

// Attach binds the mod to a target and builds its scanner/freezer pair.
func (m *InfiniteAmmo) Attach(acc memaccess.Accessor) {
	m.acc = acc
	m.engine = scanner.New(acc, m.log)
	m.session = scanner.NewSession(m.engine)
	m.registry = freezer.New(acc, m.log)
	events.Report(m.log, events.ProcessAttached, events.Info, "Infinite Ammo attached")
}

// Detach clears all freezes and forgets the resolved address and magazine
// size.
func (m *InfiniteAmmo) Detach() {
	if m.registry != nil {
		m.registry.Clear()
	}
	m.address = 0
	m.maxAmmo = 0
	m.acc = nil
	events.Report(m.log, events.ProcessDetached, events.Info, "Infinite Ammo detached")
}

// Tick re-asserts the freeze when the address is known.
func (m *InfiniteAmmo) Tick() {
	if !m.enabled || m.acc == nil {
		return
	}

	desired := defaultAmmo
	if m.maxAmmo > 0 {
		desired = m.maxAmmo
	}

	if m.address != 0 {
		m.registry.Freeze(m.address, memaccess.EncodeInt32(desired))
		return
	}

	events.Report(m.log, events.CandidatesNarrowed, events.Info, "Infinite Ammo waiting for manual scan")
}

// Session exposes the mod's scan session so the UI can drive narrowing.
func (m *InfiniteAmmo) Session() *scanner.Session { return m.session }

// Resolve records the confirmed ammo address.
func (m *InfiniteAmmo) Resolve(address uintptr) { m.address = address }

// Address returns the resolved address, zero when unresolved.
func (m *InfiniteAmmo) Address() uintptr { return m.address }

// SetMaxAmmo overrides the frozen value; zero restores the default.
func (m *InfiniteAmmo) SetMaxAmmo(v int32) { m.maxAmmo = v }

func (m *InfiniteAmmo) Enabled() bool { return m.enabled }

func (m *InfiniteAmmo) SetEnabled(enabled bool) {
	m.enabled = enabled
	if !enabled && m.registry != nil {
		m.registry.Clear()
	}
}
