package services

import (
	"context"
	"slices"

	"luckydraw/internal/models"
	"luckydraw/internal/store"
)

func (s *LotteryService) listHistory(ctx context.Context, filter store.HistoryFilter) ([]*models.HistoryEntry, error) {
	var out []*models.HistoryEntry
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListHistory(filter)
		return err
	})
	return out, err
}

// ListHistory returns every history entry, cancelled ones included, oldest first.
func (s *LotteryService) ListHistory(ctx context.Context) ([]*models.HistoryEntry, error) {
	return s.listHistory(ctx, store.HistoryFilter{})
}

// ListValidHistory returns the entries that were not cancelled, newest first.
func (s *LotteryService) ListValidHistory(ctx context.Context) ([]*models.HistoryEntry, error) {
	out, err := s.listHistory(ctx, store.HistoryFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// ListHistoryByPrize returns the standing winners of one prize.
func (s *LotteryService) ListHistoryByPrize(ctx context.Context, prizeID string) ([]*models.HistoryEntry, error) {
	return s.listHistory(ctx, store.HistoryFilter{PrizeID: prizeID, ActiveOnly: true})
}

// ListHistoryByParticipant returns the standing wins of one participant.
func (s *LotteryService) ListHistoryByParticipant(ctx context.Context, participantID string) ([]*models.HistoryEntry, error) {
	return s.listHistory(ctx, store.HistoryFilter{ParticipantID: participantID, ActiveOnly: true})
}
