package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlegames/doodle-rewards/internal/errors"
)

const testWallet = "0x1234567890123456789012345678901234567890"

// testDBService is a helper struct to hold common test dependencies
type testDBService struct {
	mock sqlmock.Sqlmock
	db   *sql.DB
	svc  *DBServiceImpl
}

// Mock implementation of DBOperations
type mockDBOperations struct {
	openFunc          func(driverName, dataSourceName string) (*sql.DB, error)
	runMigrationsFunc func(db *sql.DB) error
}

func (m *mockDBOperations) Open(driverName, dataSourceName string) (*sql.DB, error) {
	return m.openFunc(driverName, dataSourceName)
}

func (m *mockDBOperations) RunMigrations(db *sql.DB) error {
	return m.runMigrationsFunc(db)
}

// setupTestDB sets up a mock database and returns a testDBService
func setupTestDB(t *testing.T) *testDBService {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return &testDBService{
		mock: mock,
		db:   db,
		svc:  &DBServiceImpl{db: db},
	}
}

func (tdb *testDBService) close() {
	tdb.db.Close()
}

func TestNewDBService(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "testuser")
	t.Setenv("DB_PASSWORD", "testpass")
	t.Setenv("DB_NAME", "testdb")

	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	mockOps := &mockDBOperations{
		openFunc: func(driverName, dataSourceName string) (*sql.DB, error) {
			return mockDB, nil
		},
		runMigrationsFunc: func(db *sql.DB) error {
			return nil
		},
	}

	mock.ExpectPing()

	service, err := NewDBService(mockOps)

	assert.NoError(t, err)
	assert.NotNil(t, service)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCooldown(t *testing.T) {
	lastReward := time.Now().Truncate(time.Millisecond)

	testCases := []struct {
		name           string
		mockSetup      func(tdb *testDBService)
		expectedRecord *CooldownRecord
		expectError    bool
	}{
		{
			name: "existing record",
			mockSetup: func(tdb *testDBService) {
				tdb.mock.ExpectQuery("SELECT last_reward_at").
					WithArgs(testWallet).
					WillReturnRows(sqlmock.NewRows([]string{"last_reward_at"}).
						AddRow(lastReward.UnixMilli()))
			},
			expectedRecord: &CooldownRecord{Wallet: testWallet, LastRewardAt: lastReward},
		},
		{
			name: "no record",
			mockSetup: func(tdb *testDBService) {
				tdb.mock.ExpectQuery("SELECT last_reward_at").
					WithArgs(testWallet).
					WillReturnError(sql.ErrNoRows)
			},
			expectedRecord: nil,
		},
		{
			name: "query error",
			mockSetup: func(tdb *testDBService) {
				tdb.mock.ExpectQuery("SELECT last_reward_at").
					WithArgs(testWallet).
					WillReturnError(assert.AnError)
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tdb := setupTestDB(t)
			defer tdb.close()
			tc.mockSetup(tdb)

			record, err := tdb.svc.GetCooldown(testWallet)

			if tc.expectError {
				var dbErr *errors.DatabaseError
				assert.ErrorAs(t, err, &dbErr)
				return
			}
			require.NoError(t, err)
			if tc.expectedRecord == nil {
				assert.Nil(t, record)
			} else {
				require.NotNil(t, record)
				assert.Equal(t, tc.expectedRecord.Wallet, record.Wallet)
				assert.Equal(t, tc.expectedRecord.LastRewardAt.UnixMilli(), record.LastRewardAt.UnixMilli())
			}
			assert.NoError(t, tdb.mock.ExpectationsWereMet())
		})
	}
}

func TestUpsertCooldown(t *testing.T) {
	tdb := setupTestDB(t)
	defer tdb.close()

	now := time.Now()

	tdb.mock.ExpectExec("INSERT INTO cooldowns").
		WithArgs(testWallet, now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := tdb.svc.UpsertCooldown(testWallet, now)

	assert.NoError(t, err)
	assert.NoError(t, tdb.mock.ExpectationsWereMet())
}

func TestUpsertCooldownError(t *testing.T) {
	tdb := setupTestDB(t)
	defer tdb.close()

	now := time.Now()

	tdb.mock.ExpectExec("INSERT INTO cooldowns").
		WithArgs(testWallet, now.UnixMilli()).
		WillReturnError(assert.AnError)

	err := tdb.svc.UpsertCooldown(testWallet, now)

	var dbErr *errors.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestGetReferrer(t *testing.T) {
	tdb := setupTestDB(t)
	defer tdb.close()

	t.Run("linked wallet", func(t *testing.T) {
		tdb.mock.ExpectQuery("SELECT referrer_wallet").
			WithArgs(testWallet).
			WillReturnRows(sqlmock.NewRows([]string{"referrer_wallet"}).
				AddRow("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"))

		referrer, err := tdb.svc.GetReferrer(testWallet)

		assert.NoError(t, err)
		assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", referrer)
	})

	t.Run("no link", func(t *testing.T) {
		tdb.mock.ExpectQuery("SELECT referrer_wallet").
			WithArgs(testWallet).
			WillReturnError(sql.ErrNoRows)

		referrer, err := tdb.svc.GetReferrer(testWallet)

		assert.NoError(t, err)
		assert.Empty(t, referrer)
	})

	assert.NoError(t, tdb.mock.ExpectationsWereMet())
}

func TestLinkReferrer(t *testing.T) {
	referrer := "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"

	t.Run("first link is created", func(t *testing.T) {
		tdb := setupTestDB(t)
		defer tdb.close()

		tdb.mock.ExpectExec("INSERT INTO referrals").
			WithArgs(testWallet, referrer).
			WillReturnResult(sqlmock.NewResult(0, 1))

		created, err := tdb.svc.LinkReferrer(testWallet, referrer)

		assert.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("conflicting link is a no-op", func(t *testing.T) {
		tdb := setupTestDB(t)
		defer tdb.close()

		tdb.mock.ExpectExec("INSERT INTO referrals").
			WithArgs(testWallet, referrer).
			WillReturnResult(sqlmock.NewResult(0, 0))

		created, err := tdb.svc.LinkReferrer(testWallet, referrer)

		assert.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("exec error", func(t *testing.T) {
		tdb := setupTestDB(t)
		defer tdb.close()

		tdb.mock.ExpectExec("INSERT INTO referrals").
			WithArgs(testWallet, referrer).
			WillReturnError(assert.AnError)

		_, err := tdb.svc.LinkReferrer(testWallet, referrer)

		var dbErr *errors.DatabaseError
		assert.ErrorAs(t, err, &dbErr)
	})
}
