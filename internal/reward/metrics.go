package reward

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rewardsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doodle_rewards_issued_total",
		Help: "Number of primary rewards successfully minted.",
	})
	mintFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doodle_reward_mint_failures_total",
		Help: "Number of primary mint attempts that failed.",
	})
	referralBonuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doodle_referral_bonuses_total",
		Help: "Number of referral bonuses successfully minted.",
	})
	referralBonusFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doodle_referral_bonus_failures_total",
		Help: "Number of referral bonus mints that failed.",
	})
)
