// Package notify is the notification emitter: one call per state transition
// that affects a user. The database record is authoritative; websocket and
// redis fanout are best-effort extras.
package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/realtime"
)

type Notifier struct {
	Hub *realtime.Hub
	RDB *redis.Client
	Log zerolog.Logger
}

func New(hub *realtime.Hub, rdb *redis.Client, log zerolog.Logger) *Notifier {
	return &Notifier{Hub: hub, RDB: rdb, Log: log}
}

// Notify writes the notification through tx so it commits or rolls back with
// the transition that caused it, then pushes it out of band.
func (n *Notifier) Notify(tx *gorm.DB, userID uuid.UUID, typ models.NotificationType, message string, jobID *uuid.UUID, data interface{}) error {
	record := models.Notification{
		UserID:  userID,
		Message: message,
		Type:    typ,
		JobID:   jobID,
	}

	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		record.Data = datatypes.JSON(b)
	}

	if err := tx.Create(&record).Error; err != nil {
		return err
	}

	n.push(&record)
	return nil
}

func (n *Notifier) push(record *models.Notification) {
	payload := map[string]interface{}{
		"type":         "notification",
		"notification": record,
	}

	if n.Hub != nil {
		n.Hub.SendToUser(record.UserID, payload)
	}

	if n.RDB != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			n.Log.Error().Err(err).Msg("marshal notification fanout")
			return
		}
		if err := n.RDB.Publish(context.Background(), realtime.NotificationChannel, b).Err(); err != nil {
			n.Log.Warn().Err(err).Msg("redis notification publish failed")
		}
	}
}
