package types

import "math/big"

// MintResult carries the confirmed transaction details of a single mint.
type MintResult struct {
	TxHash    string
	To        string
	Amount    *big.Float
	BlockUsed uint64
}

// ReferralPayout describes a bonus mint paid to a referrer. Present on a
// RewardOutcome only when the bonus mint succeeded.
type ReferralPayout struct {
	ReferrerWallet string
	BonusAmount    *big.Float
	BonusTxHash    string
}

// RewardOutcome is the result of a successful reward issuance.
type RewardOutcome struct {
	Wallet   string
	Amount   *big.Float
	TxHash   string
	Referral *ReferralPayout
}

// RewardEvent is what the websocket feed broadcasts after a mint confirms.
type RewardEvent struct {
	Wallet string `json:"wallet"`
	Amount string `json:"amount"`
	TxHash string `json:"txHash"`
	Bonus  bool   `json:"bonus"`
}
