//go:build integration

package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nutriplan/engine/internal/infrastructure/config"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/migrations"
	"github.com/nutriplan/engine/internal/infrastructure/persistence/postgres"
)

// engineTables lists every table the migrations create, children first
var engineTables = []string{
	"food_logs",
	"meal_plans",
	"recipe_items",
	"recipes",
	"ingredients",
}

// TestDatabase is a disposable postgres instance with the engine schema
type TestDatabase struct {
	Container testcontainers.Container
	Config    config.DatabaseConfig
	Manager   *postgres.ConnectionManager
	GormDB    *gorm.DB
	DB        *sql.DB
	PgxPool   *pgxpool.Pool
	t         *testing.T
}

// ContainerConfig holds test database container settings
type ContainerConfig struct {
	Image    string
	Database string
	Username string
	Password string
}

// DefaultContainerConfig returns the default test container settings
func DefaultContainerConfig() ContainerConfig {
	return ContainerConfig{
		Image:    "postgres:15-alpine",
		Database: "nutriplan_test",
		Username: "test_user",
		Password: "test_password",
	}
}

// SetupTestDatabase starts postgres, connects through the production
// connection manager and applies all migrations
func SetupTestDatabase(t *testing.T) *TestDatabase {
	return SetupTestDatabaseWithConfig(t, DefaultContainerConfig())
}

// SetupTestDatabaseWithConfig is SetupTestDatabase with custom container settings
func SetupTestDatabaseWithConfig(t *testing.T, cc ContainerConfig) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	const pgPort = nat.Port("5432/tcp")
	dsn := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cc.Username, cc.Password, host, port.Port(), cc.Database)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        cc.Image,
			ExposedPorts: []string{string(pgPort)},
			Env: map[string]string{
				"POSTGRES_DB":       cc.Database,
				"POSTGRES_USER":     cc.Username,
				"POSTGRES_PASSWORD": cc.Password,
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
				wait.ForSQL(pgPort, "pgx", dsn),
			),
			Tmpfs: map[string]string{
				"/var/lib/postgresql/data": "rw,noexec,nosuid,size=512m",
			},
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start postgres container")

	td := &TestDatabase{Container: container, t: t}
	t.Cleanup(td.Cleanup)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, pgPort)
	require.NoError(t, err)

	td.Config = config.DatabaseConfig{
		Driver:          "postgres",
		Host:            host,
		Port:            port.Int(),
		Database:        cc.Database,
		Username:        cc.Username,
		Password:        cc.Password,
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		LogLevel:        "silent",
	}

	td.Manager, err = postgres.NewConnectionManager(ctx, td.Config, zap.NewNop())
	require.NoError(t, err, "failed to connect to test database")
	td.GormDB = td.Manager.GetDB()

	td.DB, err = sql.Open("pgx", td.Config.URL())
	require.NoError(t, err)
	require.NoError(t, td.DB.PingContext(ctx), "failed to ping test database")

	poolCfg, err := pgxpool.ParseConfig(td.Config.URL())
	require.NoError(t, err)
	poolCfg.MaxConns = 4
	td.PgxPool, err = pgxpool.NewWithConfig(ctx, poolCfg)
	require.NoError(t, err, "failed to create pgx pool")

	require.NoError(t, td.RunMigrations(), "failed to run migrations")
	return td
}

// RunMigrations applies the embedded migrations
func (td *TestDatabase) RunMigrations() error {
	m, err := migrations.New(td.DB, td.Config.Database, zap.NewNop())
	if err != nil {
		return err
	}
	return m.Up()
}

// TruncateAllTables removes all rows while keeping the schema
func (td *TestDatabase) TruncateAllTables() error {
	stmt := "TRUNCATE TABLE " + strings.Join(engineTables, ", ") + " CASCADE"
	if _, err := td.DB.Exec(stmt); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// CountRecords counts the rows of table
func (td *TestDatabase) CountRecords(ctx context.Context, table string) (int, error) {
	var count int
	err := td.PgxPool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}

// Cleanup closes all connections and stops the container
func (td *TestDatabase) Cleanup() {
	if td.PgxPool != nil {
		td.PgxPool.Close()
	}
	if td.DB != nil {
		_ = td.DB.Close()
	}
	if td.Manager != nil {
		_ = td.Manager.Close()
	}
	if td.Container != nil {
		if err := td.Container.Terminate(context.Background()); err != nil {
			td.t.Logf("failed to terminate postgres container: %v", err)
		}
	}
}
