package realtime

import (
	"github.com/redis/go-redis/v9"
)

// NotificationChannel is the redis pub/sub channel other processes (mobile
// push workers, admin dashboards) subscribe to for live notification events.
const NotificationChannel = "workconnect:notifications"

func NewRedis(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}
