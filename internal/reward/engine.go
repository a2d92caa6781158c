package reward

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/doodlegames/doodle-rewards/internal/db"
	"github.com/doodlegames/doodle-rewards/internal/errors"
	"github.com/doodlegames/doodle-rewards/internal/ethereum"
	"github.com/doodlegames/doodle-rewards/internal/types"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

const (
	// ScoreThreshold is the minimum score that earns a reward (inclusive).
	ScoreThreshold = 50

	// CooldownWindow is the minimum time between two rewards per wallet.
	CooldownWindow = time.Hour
)

var (
	// RewardAmountTokens is the fixed per-reward amount in whole tokens.
	RewardAmountTokens = big.NewFloat(1)

	// ReferralBonusRatio is the referrer's cut of the reward amount (10%).
	ReferralBonusRatio = big.NewRat(1, 10)
)

// ReferralBonusAmount computes the bonus for a given reward amount. Going
// through big.Rat keeps 10% of a whole-token amount an exact decimal.
func ReferralBonusAmount(reward *big.Float) *big.Float {
	r, _ := reward.Rat(nil)
	return new(big.Float).SetPrec(256).SetRat(r.Mul(r, ReferralBonusRatio))
}

// Service is what the API layer needs from the reward core.
type Service interface {
	IssueReward(ctx context.Context, playerWallet string, score int64) (*types.RewardOutcome, error)
	LinkReferrer(referralWallet, referrerCode string) (LinkResult, error)
}

// RewardFeed receives reward events for live broadcasting. Delivery is
// best effort.
type RewardFeed interface {
	BroadcastRewardEvent(event types.RewardEvent) error
}

// Engine orchestrates validation, the cooldown gate, the primary mint, the
// cooldown commit and the referral bonus.
type Engine struct {
	store db.DBService
	token ethereum.TokenService
	feed  RewardFeed
	now   func() time.Time
	locks walletLocks
}

// NewEngine wires a reward engine. feed may be nil.
func NewEngine(store db.DBService, token ethereum.TokenService, feed RewardFeed) *Engine {
	return &Engine{
		store: store,
		token: token,
		feed:  feed,
		now:   time.Now,
		locks: walletLocks{locks: make(map[string]*walletLock)},
	}
}

// IssueReward validates the request, enforces the per-wallet cooldown,
// mints the reward and pays the referral bonus when a link exists.
//
// The mint is the irreversible step: no state is written before it
// succeeds, and once it has succeeded the outcome is reported as a success
// no matter what the secondary steps do.
func (e *Engine) IssueReward(ctx context.Context, playerWallet string, score int64) (*types.RewardOutcome, error) {
	if !common.IsHexAddress(playerWallet) {
		return nil, &errors.ValidationError{Field: "playerWallet", Message: "invalid player wallet address"}
	}
	if score < ScoreThreshold {
		return nil, &errors.ValidationError{Field: "score", Message: "score too low (min 50 required)"}
	}

	wallet := strings.ToLower(playerWallet)

	// Per-wallet lease: held from the cooldown read through the cooldown
	// write so two in-flight requests for one wallet cannot both pass the
	// gate and double-mint. Requests for different wallets do not contend.
	lock := e.locks.acquire(wallet)
	defer e.locks.release(wallet, lock)

	record, err := e.store.GetCooldown(wallet)
	if err != nil {
		return nil, err
	}

	// The cooldown window is measured from request time, not confirmation
	// time, so now is captured before the mint call is issued.
	now := e.now()

	if record != nil {
		elapsed := now.Sub(record.LastRewardAt)
		if elapsed < CooldownWindow {
			remaining := int64((CooldownWindow - elapsed + time.Second - 1) / time.Second)
			logger.Info("Cooldown active for %s. Time left: %ds", wallet, remaining)
			return nil, &errors.CooldownError{Wallet: wallet, SecondsRemaining: remaining}
		}
	}

	logger.Info("Rewarding %s with %s DOODLE for score %d...", wallet, RewardAmountTokens.String(), score)

	// The caller may disconnect while confirmation is pending. Once issued
	// the mint is never abandoned: aborting the await would skip the
	// cooldown commit for a transaction that still mines, so cancellation
	// is detached before the irreversible step.
	ctx = context.WithoutCancel(ctx)

	mint, err := e.token.MintReward(ctx, wallet, RewardAmountTokens)
	if err != nil {
		mintFailures.Inc()
		return nil, err
	}
	rewardsIssued.Inc()

	if err := e.store.UpsertCooldown(wallet, now); err != nil {
		// The mint cannot be rolled back; a lost cooldown write favors the
		// player, not the house.
		logger.Error("Failed to record cooldown for %s: %v", wallet, err)
	}

	outcome := &types.RewardOutcome{
		Wallet: wallet,
		Amount: RewardAmountTokens,
		TxHash: mint.TxHash,
	}

	e.broadcast(types.RewardEvent{
		Wallet: wallet,
		Amount: RewardAmountTokens.String(),
		TxHash: mint.TxHash,
	})

	outcome.Referral = e.payReferralBonus(ctx, wallet)

	return outcome, nil
}

// payReferralBonus mints the referrer's cut when a referral link exists.
// Every failure here is swallowed: the primary reward is already committed,
// so nothing on this path may change the outcome's success.
func (e *Engine) payReferralBonus(ctx context.Context, wallet string) *types.ReferralPayout {
	referrer, err := e.store.GetReferrer(wallet)
	if err != nil {
		logger.Error("Failed to look up referrer for %s: %v", wallet, err)
		return nil
	}
	if referrer == "" {
		return nil
	}

	bonus := ReferralBonusAmount(RewardAmountTokens)

	mint, err := e.token.MintReward(ctx, referrer, bonus)
	if err != nil {
		referralBonusFailures.Inc()
		logger.Error("Failed to mint referral bonus to %s: %v", referrer, err)
		return nil
	}
	referralBonuses.Inc()

	logger.Info("Referral bonus of %s DOODLE minted to %s", bonus.String(), referrer)

	e.broadcast(types.RewardEvent{
		Wallet: referrer,
		Amount: bonus.String(),
		TxHash: mint.TxHash,
		Bonus:  true,
	})

	return &types.ReferralPayout{
		ReferrerWallet: referrer,
		BonusAmount:    bonus,
		BonusTxHash:    mint.TxHash,
	}
}

func (e *Engine) broadcast(event types.RewardEvent) {
	if e.feed == nil {
		return
	}
	if err := e.feed.BroadcastRewardEvent(event); err != nil {
		logger.Error("Failed to broadcast reward event: %v", err)
	}
}

// walletLocks hands out one mutex per wallet. Entries are reference
// counted and dropped once no request holds or awaits them, so the map
// does not accumulate an entry for every wallet ever seen.
type walletLocks struct {
	mu    sync.Mutex
	locks map[string]*walletLock
}

type walletLock struct {
	sync.Mutex
	refs int
}

func (w *walletLocks) acquire(wallet string) *walletLock {
	w.mu.Lock()
	lock, ok := w.locks[wallet]
	if !ok {
		lock = &walletLock{}
		w.locks[wallet] = lock
	}
	lock.refs++
	w.mu.Unlock()

	lock.Lock()
	return lock
}

func (w *walletLocks) release(wallet string, lock *walletLock) {
	lock.Unlock()

	w.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(w.locks, wallet)
	}
	w.mu.Unlock()
}
