package mods

import (
	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/freezer"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
	"github.com/vondutchi/vondutch-patcher/pkg/scanner"
)

// desiredHealth is the value God Mode pins the health field to.
const desiredHealth int32 = 100

// GodMode pins the target's health at desiredHealth once the address has
// been resolved by a scan.
type GodMode struct {
	log     events.Log
	enabled bool
	acc     memaccess.Accessor

	engine   *scanner.Engine
	session  *scanner.Session
	registry *freezer.Registry

	address uintptr
}

// NewGodMode creates the mod, disabled, with no target attached.
func NewGodMode(log events.Log) *GodMode {
	return &GodMode{log: log}
}

func (g *GodMode) Name() string { return "God Mode" }

// Compatible accepts any named process; health fields have no reliable
// per-title signature at this layer.
func (g *GodMode) Compatible(processName string) bool {
	return processName != ""
}

// Attach binds the mod to a target and builds its scanner/freezer pair.
func (g *GodMode) Attach(acc memaccess.Accessor) {
	g.acc = acc
	g.engine = scanner.New(acc, g.log)
	g.session = scanner.NewSession(g.engine)
	g.registry = freezer.New(acc, g.log)
	events.Report(g.log, events.ProcessAttached, events.Info, "God Mode attached")
}

// Detach clears all freezes and forgets the resolved address.
func (g *GodMode) Detach() {
	if g.registry != nil {
		g.registry.Clear()
	}
	g.address = 0
	g.acc = nil
	events.Report(g.log, events.ProcessDetached, events.Info, "God Mode detached")
}

// Tick re-asserts the freeze when the address is known; otherwise the mod
// is waiting on a manual scan.
func (g *GodMode) Tick() {
	if !g.enabled || g.acc == nil {
		return
	}

	if g.address != 0 {
		g.registry.Freeze(g.address, memaccess.EncodeInt32(desiredHealth))
		return
	}

	events.Report(g.log, events.CandidatesNarrowed, events.Info, "God Mode waiting for manual scan")
}

// Session exposes the mod's scan session so the UI can drive narrowing.
func (g *GodMode) Session() *scanner.Session { return g.session }

// Resolve records the address the user confirmed for the health field.
func (g *GodMode) Resolve(address uintptr) { g.address = address }

// Address returns the resolved address, zero when unresolved.
func (g *GodMode) Address() uintptr { return g.address }

func (g *GodMode) Enabled() bool { return g.enabled }

func (g *GodMode) SetEnabled(enabled bool) {
	g.enabled = enabled
	if !enabled && g.registry != nil {
		g.registry.Clear()
	}
}
