// Package sqlite provides a gorm-backed store on SQLite. Each Atomic call is
// one database transaction.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"luckydraw/internal/models"
	"luckydraw/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a SQLite-backed lottery store.
type Store struct {
	db *gorm.DB
}

// Open opens the database at dsn and migrates the schema.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("storage dsn is required")
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps in-memory
	// databases alive for the lifetime of the store.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Participant{},
		&models.Prize{},
		&models.RigDirective{},
		&models.HistoryEntry{},
	); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate storage db: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Atomic runs fn inside a database transaction. Any error rolls it back.
func (s *Store) Atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&transaction{db: db})
	})
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	errView := errors.New("view done")
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := fn(&transaction{db: db, readOnly: true}); err != nil {
			return err
		}
		return errView
	})
	if errors.Is(err, errView) {
		return nil
	}
	return err
}

type transaction struct {
	db       *gorm.DB
	readOnly bool
}

func (tx *transaction) writable() error {
	if tx.readOnly {
		return store.ErrReadOnly
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return store.ErrConflict
	default:
		return err
	}
}

func first[T any](db *gorm.DB, query string, args ...any) (*T, error) {
	var rec T
	if err := db.Where(query, args...).First(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

func (tx *transaction) GetParticipant(id string) (*models.Participant, error) {
	return first[models.Participant](tx.db, "id = ?", id)
}

func (tx *transaction) FindParticipantByName(name string) (*models.Participant, error) {
	return first[models.Participant](tx.db, "name = ?", name)
}

func (tx *transaction) ListParticipants(status models.ParticipantStatus) ([]*models.Participant, error) {
	q := tx.db.Order("created_at asc, id asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*models.Participant
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *transaction) SaveParticipant(p *models.Participant) error {
	if err := tx.writable(); err != nil {
		return err
	}
	return translate(tx.db.Save(p).Error)
}

func (tx *transaction) DeleteParticipant(id string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	res := tx.db.Delete(&models.Participant{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) GetPrize(id string) (*models.Prize, error) {
	return first[models.Prize](tx.db, "id = ?", id)
}

func (tx *transaction) FindPrizeByLevel(level int) (*models.Prize, error) {
	return first[models.Prize](tx.db, "level = ?", level)
}

func (tx *transaction) ListPrizes(status models.PrizeStatus) ([]*models.Prize, error) {
	q := tx.db.Order("level asc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*models.Prize
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *transaction) SavePrize(p *models.Prize) error {
	if err := tx.writable(); err != nil {
		return err
	}
	return translate(tx.db.Save(p).Error)
}

func (tx *transaction) DeletePrize(id string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	res := tx.db.Delete(&models.Prize{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) GetRig(id string) (*models.RigDirective, error) {
	return first[models.RigDirective](tx.db, "id = ?", id)
}

func (tx *transaction) ListRigs(prizeID string, status models.RigStatus) ([]*models.RigDirective, error) {
	q := tx.db.Order("created_at asc, id asc")
	if prizeID != "" {
		q = q.Where("prize_id = ?", prizeID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*models.RigDirective
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *transaction) SaveRig(r *models.RigDirective) error {
	if err := tx.writable(); err != nil {
		return err
	}
	return translate(tx.db.Save(r).Error)
}

func (tx *transaction) DeleteRig(id string) error {
	if err := tx.writable(); err != nil {
		return err
	}
	res := tx.db.Delete(&models.RigDirective{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (tx *transaction) DeleteAllRigs() error {
	if err := tx.writable(); err != nil {
		return err
	}
	return tx.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.RigDirective{}).Error
}

func (tx *transaction) ListHistory(filter store.HistoryFilter) ([]*models.HistoryEntry, error) {
	q := tx.db.Order("draw_time asc, created_at asc")
	if filter.PrizeID != "" {
		q = q.Where("prize_id = ?", filter.PrizeID)
	}
	if filter.ParticipantID != "" {
		q = q.Where("participant_id = ?", filter.ParticipantID)
	}
	if filter.ActiveOnly {
		q = q.Where("cancelled = ?", false)
	}
	var out []*models.HistoryEntry
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *transaction) SaveHistory(h *models.HistoryEntry) error {
	if err := tx.writable(); err != nil {
		return err
	}
	return translate(tx.db.Save(h).Error)
}

func (tx *transaction) DeleteAllHistory() error {
	if err := tx.writable(); err != nil {
		return err
	}
	return tx.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.HistoryEntry{}).Error
}
