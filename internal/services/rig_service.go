package services

import (
	"context"

	"github.com/google/logger"

	"luckydraw/internal/models"
	"luckydraw/internal/store"
)

// CreateRig binds a participant to a prize for the prize's next draw.
func (s *LotteryService) CreateRig(ctx context.Context, participantID, prizeID, operator string) (*models.RigDirective, error) {
	var rig *models.RigDirective
	err := s.atomic(ctx, func(tx store.Tx) error {
		var err error
		rig, err = s.createRig(tx, participantID, prizeID, operator)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("rig directive created: %s -> %s (by %s)", rig.ParticipantName, rig.PrizeName, operator)
	return rig, nil
}

func (s *LotteryService) createRig(tx store.Tx, participantID, prizeID, operator string) (*models.RigDirective, error) {
	p, err := tx.GetParticipant(participantID)
	if err != nil {
		return nil, lookup(err, "人員不存在")
	}
	if p.Status != models.ParticipantAvailable {
		return nil, precondition("%s 已中獎，不可設定", p.Name)
	}

	prize, err := tx.GetPrize(prizeID)
	if err != nil {
		return nil, lookup(err, "獎項不存在")
	}
	if prize.Status != models.PrizePending {
		return nil, precondition("%s 已抽取完畢，不可設定", prize.Name)
	}

	pending, err := tx.ListRigs(prize.ID, models.RigPending)
	if err != nil {
		return nil, err
	}
	for _, r := range pending {
		if r.ParticipantID == p.ID {
			return nil, precondition("%s 的 %s 設定已存在", p.Name, prize.Name)
		}
	}

	rig := &models.RigDirective{
		ID:              s.newID(),
		ParticipantID:   p.ID,
		ParticipantName: p.Name,
		PrizeID:         prize.ID,
		PrizeName:       prize.Name,
		PrizeLevel:      prize.Level,
		Status:          models.RigPending,
		Operator:        operator,
		CreatedAt:       s.now(),
	}
	if err := tx.SaveRig(rig); err != nil {
		return nil, err
	}
	return rig, nil
}

// DeleteRig removes a directive that has not produced a win yet.
func (s *LotteryService) DeleteRig(ctx context.Context, id string) error {
	return s.atomic(ctx, func(tx store.Tx) error {
		rig, err := tx.GetRig(id)
		if err != nil {
			return lookup(err, "設定不存在")
		}
		if rig.Status == models.RigUsed {
			return precondition("該設定已生效，不能刪除，請改用撤銷中獎")
		}
		return tx.DeleteRig(id)
	})
}

// CancelRig withdraws a pending directive but keeps it in the directory.
func (s *LotteryService) CancelRig(ctx context.Context, id string) (*models.RigDirective, error) {
	var rig *models.RigDirective
	err := s.atomic(ctx, func(tx store.Tx) error {
		var err error
		rig, err = tx.GetRig(id)
		if err != nil {
			return lookup(err, "設定不存在")
		}
		switch rig.Status {
		case models.RigUsed:
			return precondition("該設定已生效，不能取消，請改用撤銷中獎")
		case models.RigCancelled:
			return precondition("該設定已取消")
		}
		rig.Status = models.RigCancelled
		return tx.SaveRig(rig)
	})
	if err != nil {
		return nil, err
	}
	return rig, nil
}

// ListRigs returns rig directives in directory order, optionally filtered by status.
func (s *LotteryService) ListRigs(ctx context.Context, status models.RigStatus) ([]*models.RigDirective, error) {
	var rigs []*models.RigDirective
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		rigs, err = tx.ListRigs("", status)
		return err
	})
	return rigs, err
}
