package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestPing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	gdb, err := Open(postgres.New(postgres.Config{Conn: sqlDB}))
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, Ping(context.Background(), gdb))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	require.Error(t, Ping(context.Background(), gdb))

	require.NoError(t, mock.ExpectationsWereMet())
}

// TestMigrations 需要真实 Postgres，未设置 MIGRATION_TEST_DSN 时跳过
func TestMigrations(t *testing.T) {
	dsn := os.Getenv("MIGRATION_TEST_DSN")
	if dsn == "" {
		t.Skip("MIGRATION_TEST_DSN env var not set; skipping Postgres migration tests")
	}
	gdb, err := Open(postgres.Open(dsn))
	require.NoError(t, err)

	require.NoError(t, MigrateDown(gdb, 0))
	require.NoError(t, Migrate(gdb))

	version, dirty, err := MigrationVersion(gdb)
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(1), version)

	for _, table := range []string{"lsb_users", "lsb_credentials", "lsb_tools", "lsb_projects", "lsb_loans", "lsb_maintenance"} {
		var exists bool
		require.NoError(t, gdb.Raw(
			`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = ?)`, table,
		).Scan(&exists).Error)
		require.True(t, exists, table)
	}

	// quantity >= 0 由 CHECK 约束兜底
	err = gdb.Exec(`INSERT INTO lsb_tools (name, type, condition, quantity, price, purchase_date)
		VALUES ('x', 'Outils Électriques', 'bon', -1, 1, CURRENT_DATE)`).Error
	require.Error(t, err)

	require.NoError(t, MigrateDown(gdb, 0))
	var exists bool
	require.NoError(t, gdb.Raw(
		`SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'lsb_loans')`,
	).Scan(&exists).Error)
	require.False(t, exists)
}
