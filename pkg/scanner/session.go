package scanner

import (
	"errors"
	"fmt"
)

// ErrNoStage is returned by Session operations that need a stage which
// does not exist yet.
var ErrNoStage = errors.New("scanner: no such scan stage")

// Session drives one interactive narrowing run and keeps the output of
// every stage. Stages never mutate an earlier stage's candidate set, so the
// full history stays available for diagnostics and Undo restores the state
// before the most recent narrowing step.
type Session struct {
	engine   *Engine
	baseline *Snapshot
	stages   [][]uintptr
}

// NewSession creates a session over the given engine.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine}
}

// Begin captures the baseline snapshot for the region under investigation,
// discarding any previous history.
func (s *Session) Begin(base uintptr, length int) error {
	snap, err := s.engine.TakeSnapshot(base, length)
	if err != nil {
		return err
	}
	s.baseline = snap
	s.stages = nil
	return nil
}

// Delta re-snapshots the baseline region and narrows to the addresses whose
// value moved by expectedDelta since the last snapshot. The fresh snapshot
// becomes the baseline for the next Delta call.
func (s *Session) Delta(expectedDelta int32) ([]uintptr, error) {
	if s.baseline == nil {
		return nil, fmt.Errorf("%w: Begin was never called", ErrNoStage)
	}

	current, err := s.engine.TakeSnapshot(s.baseline.Base, len(s.baseline.Data))
	if err != nil {
		return nil, err
	}

	candidates := s.engine.CompareSnapshots(s.baseline, current, expectedDelta)
	if len(s.stages) > 0 {
		// Later delta stages only keep addresses that already survived.
		candidates = intersect(s.Candidates(), candidates)
	}

	s.baseline = current
	s.stages = append(s.stages, candidates)
	return candidates, nil
}

// Exact narrows the current candidates to those holding expectedValue right
// now.
func (s *Session) Exact(expectedValue int32) ([]uintptr, error) {
	if len(s.stages) == 0 {
		return nil, fmt.Errorf("%w: no candidates to filter", ErrNoStage)
	}

	filtered := s.engine.FilterCandidates(s.Candidates(), expectedValue)
	s.stages = append(s.stages, filtered)
	return filtered, nil
}

// Candidates returns the most recent stage's output, unshared.
func (s *Session) Candidates() []uintptr {
	if len(s.stages) == 0 {
		return nil
	}
	last := s.stages[len(s.stages)-1]
	out := make([]uintptr, len(last))
	copy(out, last)
	return out
}

// Undo discards the most recent narrowing stage and returns the one before
// it, so a filter run at the wrong moment can be retried.
func (s *Session) Undo() ([]uintptr, error) {
	if len(s.stages) == 0 {
		return nil, fmt.Errorf("%w: nothing to undo", ErrNoStage)
	}
	s.stages = s.stages[:len(s.stages)-1]
	return s.Candidates(), nil
}

// Stages returns how many narrowing stages have run.
func (s *Session) Stages() int {
	return len(s.stages)
}

func intersect(kept, fresh []uintptr) []uintptr {
	seen := make(map[uintptr]struct{}, len(kept))
	for _, a := range kept {
		seen[a] = struct{}{}
	}
	out := make([]uintptr, 0, len(fresh))
	for _, a := range fresh {
		if _, ok := seen[a]; ok {
			out = append(out, a)
		}
	}
	return out
}
