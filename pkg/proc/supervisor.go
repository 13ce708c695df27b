// Package proc owns process enumeration and the lifecycle of the access
// handle the engine borrows.
//
// The supervisor is the only component that opens or closes a process
// handle. Everything downstream receives a Session and must tolerate it
// being revoked at any moment: a detach or target exit between an attach
// check and a later read surfaces as an ordinary access failure, never as
// a crash.
package proc

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

// ErrBlockedProcess is returned by Attach for processes on the denylist.
var ErrBlockedProcess = errors.New("proc: refusing to attach to blocked process")

// blockedNames are competitive online titles this tool must never touch.
var blockedNames = map[string]struct{}{
	"cs2.exe":       {},
	"valorant.exe":  {},
	"fortnite.exe":  {},
	"apex.exe":      {},
	"overwatch.exe": {},
}

// Info describes one running process as seen during enumeration.
type Info struct {
	Pid     int32
	Name    string
	Blocked bool
}

// Session is a live attachment to one process. Accessor() borrows the
// underlying handle; after Detach the accessor fails every operation with
// memaccess.ErrInvalidHandle.
type Session struct {
	Pid  int32
	Name string

	acc    memaccess.Accessor
	revoke func()
}

// Accessor returns the memory accessor bound to this session.
func (s *Session) Accessor() memaccess.Accessor {
	return s.acc
}

// Supervisor enumerates processes and manages at most one attachment.
type Supervisor struct {
	log     events.Log
	session *Session
}

// NewSupervisor creates a supervisor reporting to the given log (may be nil).
func NewSupervisor(log events.Log) *Supervisor {
	return &Supervisor{log: log}
}

// IsBlocked reports whether the given process name is on the denylist.
// The check is case-insensitive.
func IsBlocked(name string) bool {
	_, ok := blockedNames[strings.ToLower(name)]
	return ok
}

// List enumerates running processes, sorted by lowercased name, with the
// denylist check already applied to each entry.
func (s *Supervisor) List() ([]Info, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	infos := make([]Info, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil || name == "" {
			continue
		}
		infos = append(infos, Info{
			Pid:     p.Pid,
			Name:    name,
			Blocked: IsBlocked(name),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return strings.ToLower(infos[i].Name) < strings.ToLower(infos[j].Name)
	})
	return infos, nil
}

// Attach opens the target process and establishes the session. Attaching
// while already attached detaches first. Blocked processes are refused
// before any handle is opened for writing.
func (s *Supervisor) Attach(pid int32) (*Session, error) {
	s.Detach()

	p, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("no such process %d: %w", pid, err)
	}
	name, err := p.Name()
	if err != nil {
		return nil, fmt.Errorf("resolve name of process %d: %w", pid, err)
	}

	if IsBlocked(name) {
		events.Report(s.log, events.ProcessAttached, events.Warning, "refused to attach to blocked process: %s", name)
		return nil, fmt.Errorf("%w: %s", ErrBlockedProcess, name)
	}

	acc, revoke, err := openAccessor(pid)
	if err != nil {
		events.Report(s.log, events.ProcessAttached, events.Error, "unable to open process %d: %v", pid, err)
		return nil, err
	}

	s.session = &Session{Pid: pid, Name: name, acc: acc, revoke: revoke}
	events.Report(s.log, events.ProcessAttached, events.Info, "attached to process: %s (pid %d)", name, pid)
	return s.session, nil
}

// Detach revokes the current session's accessor and releases the handle.
// Idempotent; safe to call when not attached.
func (s *Supervisor) Detach() {
	if s.session == nil {
		return
	}
	s.session.revoke()
	events.Report(s.log, events.ProcessDetached, events.Info, "detached from process %s", s.session.Name)
	s.session = nil
}

// Current returns the live session, or nil when not attached.
func (s *Supervisor) Current() *Session {
	return s.session
}

// Attached reports whether a session is live.
func (s *Supervisor) Attached() bool {
	return s.session != nil
}
