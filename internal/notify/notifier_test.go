package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/workconnect/backend/internal/db"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/realtime"
)

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

func TestNotifyPersistsRecord(t *testing.T) {
	gdb := newTestDB(t)
	n := New(nil, nil, zerolog.Nop())

	user := &models.User{Email: "u@example.com", Password: "x", Roles: models.RoleSet{models.RoleClient}}
	require.NoError(t, gdb.Create(user).Error)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return n.Notify(tx, user.ID, models.NotifSystem, "hello", nil,
			map[string]interface{}{"k": "v"})
	})
	require.NoError(t, err)

	var record models.Notification
	require.NoError(t, gdb.First(&record, "user_id = ?", user.ID).Error)
	assert.Equal(t, models.NotifSystem, record.Type)
	assert.Equal(t, "hello", record.Message)
	assert.False(t, record.Read)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(record.Data, &data))
	assert.Equal(t, "v", data["k"])
}

func TestNotifyRollsBackWithTransaction(t *testing.T) {
	gdb := newTestDB(t)
	n := New(nil, nil, zerolog.Nop())

	user := &models.User{Email: "u@example.com", Password: "x", Roles: models.RoleSet{models.RoleClient}}
	require.NoError(t, gdb.Create(user).Error)

	sentinel := assert.AnError
	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := n.Notify(tx, user.ID, models.NotifSystem, "doomed", nil, nil); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotifyPublishesToRedis(t *testing.T) {
	gdb := newTestDB(t)

	mr := miniredis.RunT(t)
	rdb := realtime.NewRedis(mr.Addr(), "")
	n := New(nil, rdb, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub := rdb.Subscribe(ctx, realtime.NotificationChannel)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	user := &models.User{Email: "u@example.com", Password: "x", Roles: models.RoleSet{models.RoleClient}}
	require.NoError(t, gdb.Create(user).Error)

	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return n.Notify(tx, user.ID, models.NotifSystem, "ping", nil, nil)
	}))

	select {
	case msg := <-sub.Channel():
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
		assert.Equal(t, "notification", payload["type"])
	case <-ctx.Done():
		t.Fatal("no notification published to redis")
	}
}

func TestNotifySurvivesRedisOutage(t *testing.T) {
	gdb := newTestDB(t)

	mr := miniredis.RunT(t)
	rdb := realtime.NewRedis(mr.Addr(), "")
	mr.Close()

	n := New(nil, rdb, zerolog.Nop())

	user := &models.User{Email: "u@example.com", Password: "x", Roles: models.RoleSet{models.RoleClient}}
	require.NoError(t, gdb.Create(user).Error)

	// Publish failure is logged, never surfaced to the caller.
	require.NoError(t, gdb.Transaction(func(tx *gorm.DB) error {
		return n.Notify(tx, user.ID, models.NotifSystem, "still works", nil, nil)
	}))

	var count int64
	require.NoError(t, gdb.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
