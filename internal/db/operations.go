package db

import (
	"database/sql"
	"time"

	"github.com/doodlegames/doodle-rewards/internal/errors"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// GetCooldown retrieves the cooldown record for a wallet. Returns nil when
// the wallet has never been rewarded.
func (s *DBServiceImpl) GetCooldown(wallet string) (*CooldownRecord, error) {
	var lastRewardMs int64
	err := s.db.QueryRow(`
		SELECT last_reward_at
		FROM cooldowns
		WHERE wallet = $1`, wallet).Scan(&lastRewardMs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &errors.DatabaseError{Operation: "get cooldown", Err: err}
	}

	return &CooldownRecord{
		Wallet:       wallet,
		LastRewardAt: time.UnixMilli(lastRewardMs),
	}, nil
}

// UpsertCooldown creates or replaces the cooldown record for a wallet.
// GREATEST keeps last_reward_at from moving backwards when writes land out
// of order.
func (s *DBServiceImpl) UpsertCooldown(wallet string, lastRewardAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO cooldowns (wallet, last_reward_at)
		VALUES ($1, $2)
		ON CONFLICT (wallet) DO UPDATE
		SET last_reward_at = GREATEST(cooldowns.last_reward_at, EXCLUDED.last_reward_at)`,
		wallet, lastRewardAt.UnixMilli())
	if err != nil {
		return &errors.DatabaseError{Operation: "upsert cooldown", Err: err}
	}
	return nil
}

// GetReferrer returns the referrer wallet linked to a referred wallet, or
// the empty string when no link exists.
func (s *DBServiceImpl) GetReferrer(referredWallet string) (string, error) {
	var referrer string
	err := s.db.QueryRow(`
		SELECT referrer_wallet
		FROM referrals
		WHERE referred_wallet = $1`, referredWallet).Scan(&referrer)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", &errors.DatabaseError{Operation: "get referrer", Err: err}
	}
	return referrer, nil
}

// LinkReferrer inserts a referral link. The first link for a referred wallet
// wins; a second attempt is a no-op and reports created=false.
func (s *DBServiceImpl) LinkReferrer(referredWallet, referrerWallet string) (bool, error) {
	res, err := s.db.Exec(`
		INSERT INTO referrals (referred_wallet, referrer_wallet, linked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (referred_wallet) DO NOTHING`,
		referredWallet, referrerWallet)
	if err != nil {
		return false, &errors.DatabaseError{Operation: "link referrer", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, &errors.DatabaseError{Operation: "link referrer rows affected", Err: err}
	}
	return affected > 0, nil
}

// RunMigrations runs the database migrations
func RunMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return &errors.DatabaseError{Operation: "could not create the postgres driver", Err: err}
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return &errors.DatabaseError{Operation: "could not create migrate instance", Err: err}
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return &errors.DatabaseError{Operation: "an error occurred while syncing the database", Err: err}
	}

	logger.Info("Database migrations completed successfully")
	return nil
}
