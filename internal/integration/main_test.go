//go:build integration

package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "time/tzdata"

	"github.com/campuskit/attendance-service/internal/config"
	"github.com/campuskit/attendance-service/internal/db"
	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/utils"
)

// Shared by every integration test in this package. These tests run
// against a real Postgres (DB_URL) so the partial unique indexes,
// named constraints, and the consume CAS are the actual SQL objects,
// not fakes.
var (
	pool           *pgxpool.Pool
	keyRepo        repositories.DeviceKeyRepository
	challengeRepo  repositories.ChallengeRepository
	attendanceRepo repositories.AttendanceRepository
)

func TestMain(m *testing.M) {
	utils.InitLogger(config.AppName)

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL env var is required for integration tests")
	}

	if err := db.MigrateUp(dsn); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var err error
	pool, err = pgxpool.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}

	keyRepo = repositories.NewDeviceKeyRepository(pool)
	challengeRepo = repositories.NewChallengeRepository(pool)
	attendanceRepo = repositories.NewAttendanceRepository(pool)

	code := m.Run()
	pool.Close()
	os.Exit(code)
}
