package db

import "time"

// CooldownRecord tracks the last confirmed reward for a wallet. One row per
// wallet; last_reward_at is stored as milliseconds since epoch and never
// moves backwards.
type CooldownRecord struct {
	Wallet       string
	LastRewardAt time.Time
}

// ReferralLink binds a referred wallet to the wallet that referred it.
// One row per referred wallet, immutable after creation.
type ReferralLink struct {
	ReferredWallet string
	ReferrerWallet string
	LinkedAt       time.Time
}
