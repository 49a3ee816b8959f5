// Package store defines the repository the lottery service reads and writes.
//
// Every public lottery operation runs inside exactly one Store.Atomic call, so
// a backend only has to make that call all-or-nothing: the memory backend
// swaps a cloned state on success, the sqlite backend maps it to one database
// transaction.
package store

import (
	"context"
	"errors"

	"luckydraw/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would break a uniqueness constraint.
	ErrConflict = errors.New("record conflicts with an existing one")
	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("write inside read-only view")
)

// HistoryFilter narrows ListHistory. Zero values match everything.
type HistoryFilter struct {
	PrizeID       string
	ParticipantID string
	ActiveOnly    bool
}

// Tx is the set of collections visible inside one unit of work.
//
// List methods return records in a stable order: participants and rig
// directives in creation order, prizes by ascending level, history by
// ascending draw time. Returned records are copies; changes only take
// effect through the matching Save method.
type Tx interface {
	GetParticipant(id string) (*models.Participant, error)
	FindParticipantByName(name string) (*models.Participant, error)
	ListParticipants(status models.ParticipantStatus) ([]*models.Participant, error)
	SaveParticipant(p *models.Participant) error
	DeleteParticipant(id string) error

	GetPrize(id string) (*models.Prize, error)
	FindPrizeByLevel(level int) (*models.Prize, error)
	ListPrizes(status models.PrizeStatus) ([]*models.Prize, error)
	SavePrize(p *models.Prize) error
	DeletePrize(id string) error

	GetRig(id string) (*models.RigDirective, error)
	ListRigs(prizeID string, status models.RigStatus) ([]*models.RigDirective, error)
	SaveRig(r *models.RigDirective) error
	DeleteRig(id string) error
	DeleteAllRigs() error

	ListHistory(filter HistoryFilter) ([]*models.HistoryEntry, error)
	SaveHistory(h *models.HistoryEntry) error
	DeleteAllHistory() error
}

// Store runs units of work against the participant, prize, rig directive and
// history collections.
type Store interface {
	// Atomic runs fn in a transaction. If fn returns an error nothing it
	// wrote is kept.
	Atomic(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
