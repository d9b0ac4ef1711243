package memstore

import (
	"context"

	"lendingapi/internal/latescan"
)

type SweepRepo struct {
	s *Store
}

// Sweeps returns the latescan.RunRepository view of the store.
func (s *Store) Sweeps() *SweepRepo {
	return &SweepRepo{s: s}
}

func (r *SweepRepo) CreateRun(_ context.Context, run *latescan.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextRunID++
	run.ID = r.s.nextRunID
	r.s.runs = append(r.s.runs, *run)
	return nil
}

func (r *SweepRepo) UpdateRun(_ context.Context, run *latescan.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.runs {
		if r.s.runs[i].ID == run.ID {
			r.s.runs[i] = *run
			return nil
		}
	}
	return nil
}

func (r *SweepRepo) ListRuns(_ context.Context, limit int) ([]latescan.Run, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]latescan.Run, 0, min(limit, len(r.s.runs)))
	for i := len(r.s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.s.runs[i])
	}
	return out, nil
}
