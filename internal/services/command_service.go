package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/logger"

	"luckydraw/internal/command"
	"luckydraw/internal/models"
)

// CommandResponse is what the host shows and broadcasts after a command.
type CommandResponse struct {
	Success bool           `json:"success"`
	Type    command.Intent `json:"type"`
	Reply   string         `json:"reply"`
	RawText string         `json:"rawText"`
	Params  command.Params `json:"params"`
	Data    map[string]any `json:"data,omitempty"`
}

// ExecuteCommand carries out a parsed command. Names and levels are
// resolved here; a failed resolution or a rejected operation yields a
// response with Success false and the reason as Reply.
func (s *LotteryService) ExecuteCommand(ctx context.Context, cmd command.Command, operator string) *CommandResponse {
	resp := &CommandResponse{
		Success: true,
		Type:    cmd.Type,
		Reply:   cmd.Reply,
		RawText: cmd.RawText,
		Params:  cmd.Params,
	}

	var err error
	switch cmd.Type {
	case command.IntentStartDraw:
		var prize *models.Prize
		if prize, err = s.resolvePrize(ctx, cmd.Params.PrizeLevel); err == nil {
			resp.Data = map[string]any{"action": cmd.Type, "prize": prize}
		}
	case command.IntentStopDraw:
		resp.Data = map[string]any{"action": cmd.Type}
	case command.IntentReset:
		if err = s.Reset(ctx); err == nil {
			resp.Data = map[string]any{"action": cmd.Type}
		}
	case command.IntentRig:
		err = s.executeRig(ctx, cmd.Params, operator, resp)
	case command.IntentCancel:
		err = s.executeCancel(ctx, cmd.Params, operator, resp)
	}

	if err != nil {
		logger.Warningf("command %s (%q) failed: %v", cmd.Type, cmd.RawText, err)
		resp.Success = false
		resp.Data = nil
		var lerr *Error
		if errors.As(err, &lerr) {
			resp.Reply = "抱歉，" + lerr.Message
		} else {
			resp.Reply = "抱歉，指令執行失敗"
		}
	}
	return resp
}

// resolvePrize maps a rank to a prize. Rank 0 means the command named no
// prize: the next pending prize is used, or the top rank when none is left.
func (s *LotteryService) resolvePrize(ctx context.Context, level int) (*models.Prize, error) {
	if level == 0 {
		next, err := s.NextPendingPrize(ctx)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		level = 1
	}
	prize, err := s.FindPrizeByLevel(ctx, level)
	if errors.Is(err, ErrNotFound) {
		return nil, notFound("沒有找到對應的獎項")
	}
	return prize, err
}

func (s *LotteryService) executeRig(ctx context.Context, params command.Params, operator string, resp *CommandResponse) error {
	p, err := s.FindParticipantByName(ctx, params.ParticipantName)
	if err != nil {
		return err
	}
	prize, err := s.resolvePrize(ctx, params.PrizeLevel)
	if err != nil {
		return err
	}
	rig, err := s.CreateRig(ctx, p.ID, prize.ID, operator)
	if err != nil {
		return err
	}
	resp.Data = map[string]any{"action": command.IntentRig, "participant": p, "prize": prize, "rig": rig}
	return nil
}

func (s *LotteryService) executeCancel(ctx context.Context, params command.Params, operator string, resp *CommandResponse) error {
	p, err := s.FindParticipantByName(ctx, params.ParticipantName)
	if err != nil {
		return err
	}
	if p.Status != models.ParticipantWon {
		return precondition("%s 還沒有中獎呢", p.Name)
	}
	entry, err := s.CancelWin(ctx, p.ID, operator)
	if err != nil {
		return fmt.Errorf("cancel win of %s: %w", p.Name, err)
	}
	resp.Data = map[string]any{"action": command.IntentCancel, "participant": p, "record": entry}
	return nil
}
