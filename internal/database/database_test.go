package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/school-system/results/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMaskPassword(t *testing.T) {
	cases := []struct {
		dsn  string
		want string
	}{
		{"host=db user=app password=hunter2 dbname=results", "host=db user=app password=*** dbname=results"},
		{"host=db password=hunter2", "host=db password=***"},
		{"app:hunter2@tcp(db:3306)/results", "app:***@tcp(db:3306)/results"},
		{"postgres://app:hunter2@db/results", "postgres://app:***@db/results"},
		{"postgres://db/results", "postgres://db/results"},
		{"postgres://app@db/results", "postgres://app@db/results"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, maskPassword(tc.dsn))
	}
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "mysql", dialector(config.DatabaseConfig{Driver: config.DriverMySQL, DSN: "u:p@tcp(h:3306)/d"}).Name())
	assert.Equal(t, "postgres", dialector(config.DatabaseConfig{Driver: config.DriverPostgres, DSN: "host=h"}).Name())
}

func TestMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, Migrate(db))
	for _, table := range []string{"course_registrations", "results", "semester_gpas", "cumulative_gpas", "grading_rules", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
