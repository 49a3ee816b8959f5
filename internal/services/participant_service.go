package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/logger"

	"luckydraw/internal/models"
	"luckydraw/internal/store"
)

// ParticipantInput holds the administrable fields of a participant.
type ParticipantInput struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Department string `json:"department"`
}

// ImportResult reports a roster import. Errors carry row numbers.
type ImportResult struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// ParticipantStatistics summarizes the roster.
type ParticipantStatistics struct {
	Total     int     `json:"total"`
	Available int     `json:"available"`
	Won       int     `json:"won"`
	WinRate   float64 `json:"winRate"`
}

// AddParticipant adds an AVAILABLE participant with a unique name.
func (s *LotteryService) AddParticipant(ctx context.Context, in ParticipantInput) (*models.Participant, error) {
	var p *models.Participant
	err := s.atomic(ctx, func(tx store.Tx) error {
		var err error
		p, err = s.addParticipant(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *LotteryService) addParticipant(tx store.Tx, in ParticipantInput) (*models.Participant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, precondition("姓名不能為空")
	}
	if err := nameFree(tx, name, ""); err != nil {
		return nil, err
	}
	p := &models.Participant{
		ID:         s.newID(),
		Name:       name,
		EmployeeID: strings.TrimSpace(in.EmployeeID),
		Department: strings.TrimSpace(in.Department),
		Status:     models.ParticipantAvailable,
		CreatedAt:  s.now(),
	}
	if err := tx.SaveParticipant(p); err != nil {
		return nil, conflict(err, "姓名已存在：%s", name)
	}
	return p, nil
}

// ImportParticipants adds rows one by one. A failing row is reported and
// skipped; the others are kept. firstRow is the number of the first row as
// the operator sees it in the source file.
func (s *LotteryService) ImportParticipants(ctx context.Context, rows []ParticipantInput, firstRow int) (*ImportResult, error) {
	result := &ImportResult{Total: len(rows), Errors: []string{}}
	err := s.atomic(ctx, func(tx store.Tx) error {
		for i, row := range rows {
			_, err := s.addParticipant(tx, row)
			var lerr *Error
			switch {
			case err == nil:
				result.Success++
			case errors.As(err, &lerr):
				result.Failed++
				result.Errors = append(result.Errors, fmt.Sprintf("第%d行：%s", firstRow+i, lerr.Message))
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("participants imported: %d ok, %d failed", result.Success, result.Failed)
	return result, nil
}

// UpdateParticipant edits the descriptive fields of a participant. Draw
// state is never touched here.
func (s *LotteryService) UpdateParticipant(ctx context.Context, id string, in ParticipantInput) (*models.Participant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, precondition("姓名不能為空")
	}

	var p *models.Participant
	err := s.atomic(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetParticipant(id)
		if err != nil {
			return lookup(err, "人員不存在")
		}
		if err := nameFree(tx, name, p.ID); err != nil {
			return err
		}
		p.Name = name
		p.EmployeeID = strings.TrimSpace(in.EmployeeID)
		p.Department = strings.TrimSpace(in.Department)
		return conflict(tx.SaveParticipant(p), "姓名已存在：%s", name)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteParticipant removes a participant who has not won.
func (s *LotteryService) DeleteParticipant(ctx context.Context, id string) error {
	return s.atomic(ctx, func(tx store.Tx) error {
		return deleteParticipant(tx, id)
	})
}

// DeleteParticipants removes each participant independently and returns
// the failures.
func (s *LotteryService) DeleteParticipants(ctx context.Context, ids []string) ([]ItemError, error) {
	failures := []ItemError{}
	for _, id := range ids {
		if err := s.DeleteParticipant(ctx, id); err != nil {
			var lerr *Error
			if !errors.As(err, &lerr) {
				return failures, err
			}
			logger.Warningf("delete participant %s failed: %v", id, err)
			failures = append(failures, ItemError{ID: id, Message: lerr.Message})
		}
	}
	return failures, nil
}

func deleteParticipant(tx store.Tx, id string) error {
	p, err := tx.GetParticipant(id)
	if err != nil {
		return lookup(err, "人員不存在")
	}
	if p.Status == models.ParticipantWon {
		return precondition("%s 已中獎，不能刪除", p.Name)
	}

	// Pending promises for a removed participant can never be honored.
	rigs, err := tx.ListRigs("", "")
	if err != nil {
		return err
	}
	for _, r := range rigs {
		if r.ParticipantID == p.ID && r.Status != models.RigUsed {
			if err := tx.DeleteRig(r.ID); err != nil {
				return err
			}
		}
	}
	return tx.DeleteParticipant(p.ID)
}

func nameFree(tx store.Tx, name, selfID string) error {
	existing, err := tx.FindParticipantByName(name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return precondition("姓名已存在：%s", name)
	}
	return nil
}

// GetParticipant returns one participant.
func (s *LotteryService) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	var p *models.Participant
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.GetParticipant(id)
		if err != nil {
			return lookup(err, "人員不存在")
		}
		return nil
	})
	return p, err
}

// FindParticipantByName resolves a display name to a participant.
func (s *LotteryService) FindParticipantByName(ctx context.Context, name string) (*models.Participant, error) {
	var p *models.Participant
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		p, err = tx.FindParticipantByName(strings.TrimSpace(name))
		if err != nil {
			return lookup(err, fmt.Sprintf("沒有找到名為 %s 的人員", name))
		}
		return nil
	})
	return p, err
}

// ListParticipants returns the roster, optionally filtered by status.
func (s *LotteryService) ListParticipants(ctx context.Context, status models.ParticipantStatus) ([]*models.Participant, error) {
	var out []*models.Participant
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListParticipants(status)
		return err
	})
	return out, err
}

// ParticipantStatistics counts the roster by status.
func (s *LotteryService) ParticipantStatistics(ctx context.Context) (*ParticipantStatistics, error) {
	all, err := s.ListParticipants(ctx, "")
	if err != nil {
		return nil, err
	}
	stats := &ParticipantStatistics{Total: len(all)}
	for _, p := range all {
		switch p.Status {
		case models.ParticipantAvailable:
			stats.Available++
		case models.ParticipantWon:
			stats.Won++
		}
	}
	if stats.Total > 0 {
		stats.WinRate = float64(stats.Won) / float64(stats.Total) * 100
	}
	return stats, nil
}
