package fee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/workconnect/backend/internal/db"
	"github.com/workconnect/backend/internal/models"
)

func TestAmount(t *testing.T) {
	cases := []struct {
		amount int64
		pct    int
		want   int64
	}{
		{100, 10, 10},
		{1000, 10, 100},
		{99, 10, 10},   // 9.9 rounds up
		{94, 10, 9},    // 9.4 rounds down
		{95, 10, 10},   // 9.5 rounds up, half-up
		{1, 10, 0},     // 0.1 rounds down
		{5, 10, 1},     // 0.5 rounds up
		{100, 15, 15},
		{333, 15, 50},  // 49.95 rounds up
		{100, 100, 100},
		{0, 10, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Amount(tc.amount, tc.pct),
			"Amount(%d, %d)", tc.amount, tc.pct)
	}
}

func TestVerify(t *testing.T) {
	record := &models.ServiceFee{
		JobAmount:            100,
		ServiceFeePercentage: 10,
		ServiceFeeAmount:     10,
	}
	assert.NoError(t, Verify(record))

	record.ServiceFeeAmount = 11
	assert.ErrorIs(t, Verify(record), ErrAmountDrift)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func testJobAndOffer(amount int64) (*models.Job, *models.JobOffer) {
	job := &models.Job{}
	_ = job.BeforeCreate(nil)
	offer := &models.JobOffer{OfferAmount: amount}
	_ = offer.BeforeCreate(nil)
	offer.JobID = job.ID
	return job, offer
}

func TestCreateForAcceptedOffer(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewService(gdb)
	job, offer := testJobAndOffer(100)

	var record *models.ServiceFee
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = svc.CreateForAcceptedOffer(tx, job, offer, 10)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, job.ID, record.JobID)
	assert.Equal(t, int64(100), record.JobAmount)
	assert.Equal(t, int64(10), record.ServiceFeeAmount)
	assert.Equal(t, models.FeeStatusPending, record.Status)
	assert.True(t, record.DueDate.After(time.Now().Add(6*24*time.Hour)))
	assert.NoError(t, Verify(record))

	// One fee per job: a second record for the same job is refused.
	err = gdb.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CreateForAcceptedOffer(tx, job, offer, 10)
		return err
	})
	assert.Error(t, err)
}

func TestCreateForAcceptedOfferPercentageRange(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewService(gdb)
	job, offer := testJobAndOffer(100)

	for _, pct := range []int{0, -1, 101} {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			_, err := svc.CreateForAcceptedOffer(tx, job, offer, pct)
			return err
		})
		assert.Error(t, err, "percentage %d", pct)
	}
}

func TestSettle(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewService(gdb)
	job, offer := testJobAndOffer(200)

	var record *models.ServiceFee
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		record, err = svc.CreateForAcceptedOffer(tx, job, offer, 10)
		return err
	}))

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Settle(tx, record)
	}))
	assert.Equal(t, models.FeeStatusPaid, record.Status)
	require.NotNil(t, record.PaymentDate)

	// Settling twice is an error.
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Settle(tx, record)
	})
	assert.Error(t, err)
}
