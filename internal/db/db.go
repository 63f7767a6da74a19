package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/workconnect/backend/internal/models"
)

func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// Migrate runs AutoMigrate for every entity plus the Postgres-only constraint
// DDL that backs the invariants the application also checks in code:
//
//   - one active job per worker: a partial unique index on jobs(worker_id)
//     while status is "in progress" makes the check-then-assign race lose at
//     the storage layer;
//   - no overlapping active bookings per worker: a btree_gist exclusion
//     constraint over (worker_id, [start_time, end_time)).
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.User{},
		&models.WorkerProfile{},
		&models.Job{},
		&models.JobOffer{},
		&models.ServiceFee{},
		&models.Booking{},
		&models.Availability{},
		&models.Notification{},
	); err != nil {
		return err
	}

	if gdb.Dialector.Name() != "postgres" {
		return nil
	}

	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_one_active_per_worker
			ON jobs (worker_id) WHERE status = 'in progress'`,
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,
		`DO $$ BEGIN
			ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
				EXCLUDE USING gist (
					worker_id WITH =,
					tstzrange(start_time, end_time) WITH &&
				) WHERE (status IN ('pending', 'confirmed'));
		EXCEPTION WHEN duplicate_table OR duplicate_object THEN NULL;
		END $$`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return err
		}
	}
	return nil
}
