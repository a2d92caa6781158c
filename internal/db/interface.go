package db

import "time"

// DBService interface defines the methods we need from the database
type DBService interface {
	GetCooldown(wallet string) (*CooldownRecord, error)
	UpsertCooldown(wallet string, lastRewardAt time.Time) error
	GetReferrer(referredWallet string) (string, error)
	LinkReferrer(referredWallet, referrerWallet string) (bool, error)
	Close() error
}
