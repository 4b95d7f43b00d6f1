package testutil

import (
	"context"
	"net/mail"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/catalog"
	"github.com/trezcool/registrar/storage/database"
	logsvc "github.com/trezcool/registrar/services/logger"
)

// NewConfig returns the configuration used by tests, with a SQLite database in a temporary directory.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	return &core.Config{
		Env:              "TEST",
		Build:            "test",
		AppName:          "Registrar",
		TestMode:         true,
		SecretKey:        "test-secret",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "Registrar", Address: "noreply@registrar.test"},
		Database: core.DatabaseConfig{
			Engine: database.SQLite,
			Path:   filepath.Join(t.TempDir(), "registrar.db"),
		},
		Server: core.ServerConfig{
			Host:                      "localhost",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: time.Hour,
		},
		Ledger: core.LedgerConfig{PassingGrade: 6},
	}
}

// NewLogger returns a logger discarding everything.
func NewLogger() core.Logger {
	return logsvc.NewZapLogger(zap.NewNop())
}

// OpenDB opens the database of conf and migrates it. It is closed at the end of the test.
func OpenDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db.DB, conf.Database.Engine); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

// CreateOffering stores an offering with the given id, credits and capacity; opts override the other fields.
func CreateOffering(
	t *testing.T,
	repo catalog.Repository,
	id string,
	credits, capacity int,
	opts ...func(*catalog.Offering),
) catalog.Offering {
	t.Helper()
	now := time.Now().UTC()
	off := catalog.Offering{
		ID:          id,
		SubjectCode: id,
		SubjectName: "Subject " + id,
		Credits:     credits,
		Instructor:  "Prof. Ada",
		Schedule:    "Mon 08:00-10:00",
		Department:  "Mathematics",
		Term:        "2025-1",
		Capacity:    capacity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(&off)
	}
	off, err := repo.CreateOffering(context.Background(), off)
	if err != nil {
		t.Fatalf("CreateOffering() failed: %v", err)
	}
	return off
}
