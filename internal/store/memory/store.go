// Package memory provides an in-memory store used for tests and for events
// that do not need to survive a restart.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"luckydraw/internal/models"
	"luckydraw/internal/store"
)

var _ store.Store = (*Store)(nil)

type state struct {
	participants []models.Participant
	prizes       []models.Prize
	rigs         []models.RigDirective
	history      []models.HistoryEntry
}

// clone copies every collection. Records are values and pointer fields are
// never mutated in place, so a shallow copy per record is enough.
func (s state) clone() state {
	return state{
		participants: slices.Clone(s.participants),
		prizes:       slices.Clone(s.prizes),
		rigs:         slices.Clone(s.rigs),
		history:      slices.Clone(s.history),
	}
}

// Store keeps all collections in memory behind a RWMutex.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{nowFn: time.Now}
}

// Atomic runs fn against a clone of the current state and swaps it in only
// when fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View runs fn against a read-only snapshot.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(&transaction{state: snapshot, readOnly: true})
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

type transaction struct {
	state    state
	readOnly bool
	now      time.Time
}

func (tx *transaction) writable() error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

func (tx *transaction) GetParticipant(id string) (*models.Participant, error) {
	i := slices.IndexFunc(tx.state.participants, func(p models.Participant) bool { return p.ID == id })
	if i < 0 {
		return nil, store.ErrNotFound
	}
	p := tx.state.participants[i]
	return &p, nil
}

func (tx *transaction) FindParticipantByName(name string) (*models.Participant, error) {
	i := slices.IndexFunc(tx.state.participants, func(p models.Participant) bool { return p.Name == name })
	if i < 0 {
		return nil, store.ErrNotFound
	}
	p := tx.state.participants[i]
	return &p, nil
}

func (tx *transaction) ListParticipants(status models.ParticipantStatus) ([]*models.Participant, error) {
	out := make([]*models.Participant, 0, len(tx.state.participants))
	for _, p := range tx.state.participants {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func (tx *transaction) SaveParticipant(p *models.Participant) error {
	if err := tx.writable(); err != nil {
		return err
	}
	for _, other := range tx.state.participants {
		if other.ID != p.ID && other.Name == p.Name {
			return store.ErrConflict
		}
	}
	rec := *p
	rec.UpdatedAt = tx.now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = tx.now
	}
	i := slices.IndexFunc(tx.state.participants, func(o models.Participant) bool { return o.ID == p.ID })
	if i < 0 {
		tx.state.participants = append(tx.state.participants, rec)
	} else {
		tx.state.participants[i] = rec
	}
	*p = rec
	return nil
}

func (tx *transaction) DeleteParticipant(id string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	n := len(tx.state.participants)
	tx.state.participants = slices.DeleteFunc(tx.state.participants, func(p models.Participant) bool { return p.ID == id })
	if len(tx.state.participants) == n {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) GetPrize(id string) (*models.Prize, error) {
	i := slices.IndexFunc(tx.state.prizes, func(p models.Prize) bool { return p.ID == id })
	if i < 0 {
		return nil, store.ErrNotFound
	}
	p := tx.state.prizes[i]
	return &p, nil
}

func (tx *transaction) FindPrizeByLevel(level int) (*models.Prize, error) {
	i := slices.IndexFunc(tx.state.prizes, func(p models.Prize) bool { return p.Level == level })
	if i < 0 {
		return nil, store.ErrNotFound
	}
	p := tx.state.prizes[i]
	return &p, nil
}

func (tx *transaction) ListPrizes(status models.PrizeStatus) ([]*models.Prize, error) {
	out := make([]*models.Prize, 0, len(tx.state.prizes))
	for _, p := range tx.state.prizes {
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, &p)
	}
	slices.SortStableFunc(out, func(a, b *models.Prize) int { return a.Level - b.Level })
	return out, nil
}

func (tx *transaction) SavePrize(p *models.Prize) error {
	if err := tx.writable(); err != nil {
		return err
	}
	for _, other := range tx.state.prizes {
		if other.ID != p.ID && other.Level == p.Level {
			return store.ErrConflict
		}
	}
	rec := *p
	rec.UpdatedAt = tx.now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = tx.now
	}
	i := slices.IndexFunc(tx.state.prizes, func(o models.Prize) bool { return o.ID == p.ID })
	if i < 0 {
		tx.state.prizes = append(tx.state.prizes, rec)
	} else {
		tx.state.prizes[i] = rec
	}
	*p = rec
	return nil
}

func (tx *transaction) DeletePrize(id string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	n := len(tx.state.prizes)
	tx.state.prizes = slices.DeleteFunc(tx.state.prizes, func(p models.Prize) bool { return p.ID == id })
	if len(tx.state.prizes) == n {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) GetRig(id string) (*models.RigDirective, error) {
	i := slices.IndexFunc(tx.state.rigs, func(r models.RigDirective) bool { return r.ID == id })
	if i < 0 {
		return nil, store.ErrNotFound
	}
	r := tx.state.rigs[i]
	return &r, nil
}

func (tx *transaction) ListRigs(prizeID string, status models.RigStatus) ([]*models.RigDirective, error) {
	out := make([]*models.RigDirective, 0)
	for _, r := range tx.state.rigs {
		if prizeID != "" && r.PrizeID != prizeID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, &r)
	}
	return out, nil
}

func (tx *transaction) SaveRig(r *models.RigDirective) error {
	if err := tx.writable(); err != nil {
		return err
	}
	rec := *r
	rec.UpdatedAt = tx.now
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = tx.now
	}
	i := slices.IndexFunc(tx.state.rigs, func(o models.RigDirective) bool { return o.ID == r.ID })
	if i < 0 {
		tx.state.rigs = append(tx.state.rigs, rec)
	} else {
		tx.state.rigs[i] = rec
	}
	*r = rec
	return nil
}

func (tx *transaction) DeleteRig(id string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	n := len(tx.state.rigs)
	tx.state.rigs = slices.DeleteFunc(tx.state.rigs, func(r models.RigDirective) bool { return r.ID == id })
	if len(tx.state.rigs) == n {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) DeleteAllRigs() error {
	if err := tx.writable(); err != nil {
		return err
	}
	tx.state.rigs = nil
	return nil
}

func (tx *transaction) ListHistory(filter store.HistoryFilter) ([]*models.HistoryEntry, error) {
	out := make([]*models.HistoryEntry, 0)
	for _, h := range tx.state.history {
		if filter.PrizeID != "" && h.PrizeID != filter.PrizeID {
			continue
		}
		if filter.ParticipantID != "" && h.ParticipantID != filter.ParticipantID {
			continue
		}
		if filter.ActiveOnly && h.Cancelled {
			continue
		}
		out = append(out, &h)
	}
	slices.SortStableFunc(out, func(a, b *models.HistoryEntry) int { return a.DrawTime.Compare(b.DrawTime) })
	return out, nil
}

func (tx *transaction) SaveHistory(h *models.HistoryEntry) error {
	if err := tx.writable(); err != nil {
		return err
	}
	rec := *h
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = tx.now
	}
	i := slices.IndexFunc(tx.state.history, func(o models.HistoryEntry) bool { return o.ID == h.ID })
	if i < 0 {
		tx.state.history = append(tx.state.history, rec)
	} else {
		tx.state.history[i] = rec
	}
	*h = rec
	return nil
}

func (tx *transaction) DeleteAllHistory() error {
	if err := tx.writable(); err != nil {
		return err
	}
	tx.state.history = nil
	return nil
}
