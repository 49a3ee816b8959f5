package services

import (
	"context"
	crand "crypto/rand"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"luckydraw/internal/models"
	"luckydraw/internal/store"
)

// Notifier receives every successful draw result. It is called without any
// lottery lock held and its delivery is never awaited.
type Notifier interface {
	PublishResult(result *models.DrawResult)
}

// LotteryService is the draw engine plus the administration of the roster,
// prizes and rig directives. Every mutating operation holds mu for its whole
// unit of work, so draws, cancellations, resets and rig changes never
// interleave.
type LotteryService struct {
	mu       sync.Mutex
	store    store.Store
	notifier Notifier
	rng      *rand.Rand
	now      func() time.Time
	newID    func() string
}

// Option configures a LotteryService.
type Option func(*LotteryService)

// WithNotifier sets the observer of draw results.
func WithNotifier(n Notifier) Option {
	return func(s *LotteryService) { s.notifier = n }
}

// WithRand sets the random source used by the random pass.
func WithRand(r *rand.Rand) Option {
	return func(s *LotteryService) { s.rng = r }
}

// WithClock sets the time source for draw, cancel and creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *LotteryService) { s.now = now }
}

// NewLotteryService creates a LotteryService on top of st.
func NewLotteryService(st store.Store, opts ...Option) *LotteryService {
	s := &LotteryService{
		store: st,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		var seed [32]byte
		_, _ = crand.Read(seed[:])
		s.rng = rand.New(rand.NewChaCha8(seed))
	}
	return s
}

// atomic runs fn as one serialized unit of work.
func (s *LotteryService) atomic(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Atomic(ctx, fn)
}

func (s *LotteryService) view(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.store.View(ctx, fn)
}

// Draw selects the winners for the remaining slots of a prize. Pending rig
// directives are honored first, the rest is drawn uniformly at random from
// the available pool. All state changes are committed together.
func (s *LotteryService) Draw(ctx context.Context, prizeID, operator string) (*models.DrawResult, error) {
	var result *models.DrawResult
	err := s.atomic(ctx, func(tx store.Tx) error {
		var err error
		result, err = s.draw(tx, prizeID, operator)
		return err
	})
	if err != nil {
		logger.Warningf("draw prize %s failed: %v", prizeID, err)
		return nil, err
	}

	logger.Infof("drew %d winner(s) for %s (level %d) by %s", len(result.Winners), result.PrizeName, result.PrizeLevel, operator)
	if s.notifier != nil {
		go s.notifier.PublishResult(result)
	}
	return result, nil
}

func (s *LotteryService) draw(tx store.Tx, prizeID, operator string) (*models.DrawResult, error) {
	prize, err := tx.GetPrize(prizeID)
	if err != nil {
		return nil, lookup(err, "獎項不存在")
	}
	if prize.Status == models.PrizeCompleted {
		return nil, precondition("該獎項已抽取完畢")
	}
	remaining := prize.Remaining()
	if remaining <= 0 {
		return nil, precondition("該獎項已無剩餘名額")
	}

	pool, err := tx.ListParticipants(models.ParticipantAvailable)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, precondition("沒有可參與抽獎的人員")
	}
	if len(pool) < remaining {
		return nil, precondition("可用人員不足（剩餘名額 %d，可用人員 %d），請減少中獎人數", remaining, len(pool))
	}

	rigs, err := tx.ListRigs(prize.ID, models.RigPending)
	if err != nil {
		return nil, err
	}

	picks := pickWinners(s.rng, pool, rigs, remaining)
	drawTime := s.now()

	result := &models.DrawResult{
		PrizeID:    prize.ID,
		PrizeName:  prize.Name,
		PrizeLevel: prize.Level,
		DrawTime:   drawTime,
		Winners:    make([]models.Winner, 0, len(picks)),
	}

	for _, pk := range picks {
		p := pk.participant
		p.Status = models.ParticipantWon
		p.WonPrizeID = prize.ID
		p.WonPrizeName = prize.Name
		p.WonTime = &drawTime
		if err := tx.SaveParticipant(p); err != nil {
			return nil, err
		}

		action := models.ActionNormal
		if pk.rig != nil {
			action = models.ActionRigged
			pk.rig.Status = models.RigUsed
			pk.rig.UsedTime = &drawTime
			if err := tx.SaveRig(pk.rig); err != nil {
				return nil, err
			}
			logger.Infof("rig directive applied: %s wins %s", p.Name, prize.Name)
		}

		entry := &models.HistoryEntry{
			ID:              s.newID(),
			PrizeID:         prize.ID,
			PrizeName:       prize.Name,
			PrizeLevel:      prize.Level,
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			Action:          action,
			Operator:        operator,
			DrawTime:        drawTime,
			CreatedAt:       drawTime,
		}
		if err := tx.SaveHistory(entry); err != nil {
			return nil, err
		}

		result.Winners = append(result.Winners, models.Winner{
			ID:         p.ID,
			Name:       p.Name,
			EmployeeID: p.EmployeeID,
			Department: p.Department,
			IsRigged:   pk.rig != nil,
		})
	}

	prize.DrawnCount += len(picks)
	if prize.DrawnCount >= prize.Count {
		prize.Status = models.PrizeCompleted
	}
	prize.DrawTime = &drawTime
	if err := tx.SavePrize(prize); err != nil {
		return nil, err
	}

	return result, nil
}

type pick struct {
	participant *models.Participant
	rig         *models.RigDirective
}

// pickWinners selects at most slots winners from pool. Rig directives are
// honored in order while their participant is still in the pool; a directive
// whose participant is gone is skipped. The remaining slots are filled by a
// partial Fisher-Yates shuffle, so every subset of the leftover pool is
// equally likely.
func pickWinners(rng *rand.Rand, pool []*models.Participant, rigs []*models.RigDirective, slots int) []pick {
	candidates := slices.Clone(pool)
	picks := make([]pick, 0, slots)

	for _, rig := range rigs {
		if len(picks) == slots {
			break
		}
		i := slices.IndexFunc(candidates, func(p *models.Participant) bool { return p.ID == rig.ParticipantID })
		if i < 0 {
			continue
		}
		picks = append(picks, pick{participant: candidates[i], rig: rig})
		candidates = slices.Delete(candidates, i, i+1)
	}

	k := min(slots-len(picks), len(candidates))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
		picks = append(picks, pick{participant: candidates[i]})
	}
	return picks
}

// CancelWin reverts the most recent win of a participant: the history entry
// is flagged cancelled, the participant returns to the pool and the prize
// frees one slot. Rig directives are left untouched.
func (s *LotteryService) CancelWin(ctx context.Context, participantID, operator string) (*models.HistoryEntry, error) {
	var cancelled *models.HistoryEntry
	err := s.atomic(ctx, func(tx store.Tx) error {
		p, err := tx.GetParticipant(participantID)
		if err != nil {
			return lookup(err, "人員不存在")
		}
		if p.Status != models.ParticipantWon {
			return precondition("%s 未中獎，無需撤銷", p.Name)
		}

		entries, err := tx.ListHistory(store.HistoryFilter{ParticipantID: p.ID, ActiveOnly: true})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return inconsistent("未找到 %s 的中獎記錄", p.Name)
		}
		entry := entries[len(entries)-1]

		now := s.now()
		entry.Cancelled = true
		entry.CancelledTime = &now
		entry.Remark = "撤銷人：" + operator
		if err := tx.SaveHistory(entry); err != nil {
			return err
		}

		p.ClearWin()
		if err := tx.SaveParticipant(p); err != nil {
			return err
		}

		// The prize may have been removed by hand; the win is still revoked.
		prize, err := tx.GetPrize(entry.PrizeID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if prize != nil {
			prize.DrawnCount = max(0, prize.DrawnCount-1)
			if prize.DrawnCount < prize.Count {
				prize.Status = models.PrizePending
			}
			if err := tx.SavePrize(prize); err != nil {
				return err
			}
		}

		cancelled = entry
		return nil
	})
	if err != nil {
		logger.Warningf("cancel win of %s failed: %v", participantID, err)
		return nil, err
	}

	logger.Infof("win cancelled: %s lost %s (by %s)", cancelled.ParticipantName, cancelled.PrizeName, operator)
	return cancelled, nil
}

// Reset returns every participant to the pool, every prize to PENDING and
// deletes all history and rig directives.
func (s *LotteryService) Reset(ctx context.Context) error {
	err := s.atomic(ctx, func(tx store.Tx) error {
		participants, err := tx.ListParticipants("")
		if err != nil {
			return err
		}
		for _, p := range participants {
			p.ClearWin()
			if err := tx.SaveParticipant(p); err != nil {
				return err
			}
		}

		prizes, err := tx.ListPrizes("")
		if err != nil {
			return err
		}
		for _, prize := range prizes {
			prize.Status = models.PrizePending
			prize.DrawnCount = 0
			prize.DrawTime = nil
			if err := tx.SavePrize(prize); err != nil {
				return err
			}
		}

		if err := tx.DeleteAllHistory(); err != nil {
			return err
		}
		return tx.DeleteAllRigs()
	})
	if err != nil {
		logger.Errorf("reset failed: %v", err)
		return err
	}
	logger.Info("lottery reset")
	return nil
}
