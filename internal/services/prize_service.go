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

// PrizeInput holds the administrable fields of a prize.
type PrizeInput struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

func (in *PrizeInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return precondition("獎項名稱不能為空")
	}
	if in.Level < 1 {
		return precondition("等級必須大於 0")
	}
	if in.Count < 1 {
		return precondition("中獎人數至少為 1")
	}
	return nil
}

// PrizeStatistics summarizes prize progress.
type PrizeStatistics struct {
	TotalPrizes      int `json:"totalPrizes"`
	PendingPrizes    int `json:"pendingPrizes"`
	CompletedPrizes  int `json:"completedPrizes"`
	TotalWinnerSlots int `json:"totalWinnerSlots"`
	TotalDrawn       int `json:"totalDrawn"`
}

// CreatePrize adds a new PENDING prize with a unique level.
func (s *LotteryService) CreatePrize(ctx context.Context, in PrizeInput) (*models.Prize, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var prize *models.Prize
	err := s.atomic(ctx, func(tx store.Tx) error {
		if err := levelFree(tx, in.Level, ""); err != nil {
			return err
		}
		available, err := tx.ListParticipants(models.ParticipantAvailable)
		if err != nil {
			return err
		}
		if in.Count > len(available) {
			return precondition("中獎人數 %d 超過可用人數 %d", in.Count, len(available))
		}

		prize = &models.Prize{
			ID:          s.newID(),
			Name:        in.Name,
			Level:       in.Level,
			Count:       in.Count,
			Description: in.Description,
			Status:      models.PrizePending,
			CreatedAt:   s.now(),
		}
		return conflict(tx.SavePrize(prize), "等級已存在：%d", in.Level)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("prize created: %s (level %d, count %d)", prize.Name, prize.Level, prize.Count)
	return prize, nil
}

// UpdatePrize edits a prize that has not been drawn yet.
func (s *LotteryService) UpdatePrize(ctx context.Context, id string, in PrizeInput) (*models.Prize, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var prize *models.Prize
	err := s.atomic(ctx, func(tx store.Tx) error {
		var err error
		prize, err = tx.GetPrize(id)
		if err != nil {
			return lookup(err, "獎項不存在")
		}
		if prize.DrawnCount > 0 {
			return precondition("該獎項已開始抽獎，不能修改")
		}
		if prize.Level != in.Level {
			if err := levelFree(tx, in.Level, prize.ID); err != nil {
				return err
			}
		}
		prize.Name = in.Name
		prize.Level = in.Level
		prize.Count = in.Count
		prize.Description = in.Description
		return conflict(tx.SavePrize(prize), "等級已存在：%d", in.Level)
	})
	if err != nil {
		return nil, err
	}
	return prize, nil
}

// DeletePrize removes a prize that has not been drawn yet, together with its
// unused rig directives.
func (s *LotteryService) DeletePrize(ctx context.Context, id string) error {
	return s.atomic(ctx, func(tx store.Tx) error {
		prize, err := tx.GetPrize(id)
		if err != nil {
			return lookup(err, "獎項不存在")
		}
		if prize.DrawnCount > 0 {
			return precondition("該獎項已開始抽獎，不能刪除")
		}
		rigs, err := tx.ListRigs(prize.ID, "")
		if err != nil {
			return err
		}
		for _, r := range rigs {
			// A USED directive outlives a cancelled win and only goes away on reset.
			if r.Status == models.RigUsed {
				continue
			}
			if err := tx.DeleteRig(r.ID); err != nil {
				return err
			}
		}
		return tx.DeletePrize(prize.ID)
	})
}

func levelFree(tx store.Tx, level int, selfID string) error {
	existing, err := tx.FindPrizeByLevel(level)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != selfID:
		return precondition("等級已存在：%d", level)
	}
	return nil
}

// GetPrize returns one prize.
func (s *LotteryService) GetPrize(ctx context.Context, id string) (*models.Prize, error) {
	var prize *models.Prize
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		prize, err = tx.GetPrize(id)
		if err != nil {
			return lookup(err, "獎項不存在")
		}
		return nil
	})
	return prize, err
}

// FindPrizeByLevel resolves a rank to a prize.
func (s *LotteryService) FindPrizeByLevel(ctx context.Context, level int) (*models.Prize, error) {
	var prize *models.Prize
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		prize, err = tx.FindPrizeByLevel(level)
		if err != nil {
			return lookup(err, fmt.Sprintf("沒有找到等級 %d 的獎項", level))
		}
		return nil
	})
	return prize, err
}

// ListPrizes returns prizes by ascending level, optionally filtered by status.
func (s *LotteryService) ListPrizes(ctx context.Context, status models.PrizeStatus) ([]*models.Prize, error) {
	var prizes []*models.Prize
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		prizes, err = tx.ListPrizes(status)
		return err
	})
	return prizes, err
}

// NextPendingPrize returns the pending prize with the largest level, the
// least prestigious one left, which is drawn when no prize is named.
func (s *LotteryService) NextPendingPrize(ctx context.Context) (*models.Prize, error) {
	var next *models.Prize
	err := s.view(ctx, func(tx store.Tx) error {
		pending, err := tx.ListPrizes(models.PrizePending)
		if err != nil {
			return err
		}
		next = nextPending(pending)
		if next == nil {
			return notFound("沒有待抽取的獎項")
		}
		return nil
	})
	return next, err
}

func nextPending(pending []*models.Prize) *models.Prize {
	var next *models.Prize
	for _, p := range pending {
		if next == nil || p.Level > next.Level {
			next = p
		}
	}
	return next
}

// PrizeStatistics counts prizes and drawn slots.
func (s *LotteryService) PrizeStatistics(ctx context.Context) (*PrizeStatistics, error) {
	prizes, err := s.ListPrizes(ctx, "")
	if err != nil {
		return nil, err
	}
	stats := &PrizeStatistics{TotalPrizes: len(prizes)}
	for _, p := range prizes {
		switch p.Status {
		case models.PrizePending:
			stats.PendingPrizes++
		case models.PrizeCompleted:
			stats.CompletedPrizes++
		}
		stats.TotalWinnerSlots += p.Count
		stats.TotalDrawn += p.DrawnCount
	}
	return stats, nil
}
