package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
	"github.com/gablilli/selfhosted-classeviva/storage/database"
)

// PrepareDB connects to TEST_DATABASE_URL, migrates it and empties the tables.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	conf := &core.Config{Database: core.DatabaseConfig{Engine: "postgres", URL: dsn}}
	db, err := database.Open(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db.DB))
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	_, err := db.Exec(`TRUNCATE grades, users RESTART IDENTITY`)
	require.NoError(t, err)
}

func CreateUser(t *testing.T, repo session.Repository, username, upstreamToken string, updatedAt ...time.Time) session.User {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(updatedAt) > 0 {
		tstamp = updatedAt[0].UTC()
	}
	usr, err := repo.UpsertUser(context.Background(), session.User{
		Username:      username,
		UpstreamToken: upstreamToken,
		UpdatedAt:     tstamp,
	})
	require.NoError(t, err)
	return usr
}

// SampleGrades returns two normalized grades in different subjects, Italiano having the lower value.
func SampleGrades() []grade.Grade {
	return []grade.Grade{
		{ID: "1", Subject: "Matematica", Value: 7.25, OriginalValue: "7+", Date: "2024-01-15", Description: "Verifica", Type: grade.TypeWritten, Teacher: "Prof. Rossi", Period: "Primo"},
		{ID: "2", Subject: "Italiano", Value: 6, Date: "2024-01-20", Description: "Tema", Type: grade.TypeOral, Teacher: "Prof. Bianchi", Period: "Primo"},
	}
}
