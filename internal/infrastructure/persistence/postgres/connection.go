// Package postgres provides PostgreSQL database connection and management
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/nutriplan/engine/internal/infrastructure/config"
	gormModels "github.com/nutriplan/engine/internal/infrastructure/persistence/gorm"
)

// ConnectionManager manages the primary PostgreSQL connection and its read
// replicas. Reads issued through GetDB go to replicas when any are set.
type ConnectionManager struct {
	config  config.DatabaseConfig
	logger  *zap.Logger
	db      *gorm.DB
	writeDB *sql.DB
}

// ConnectionConfig holds pool and logging settings
type ConnectionConfig struct {
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	LogLevel           string
	LoadBalancePolicy  string
}

// DefaultConnectionConfig returns the pool defaults
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:       50,
		MaxIdleConns:       10,
		ConnMaxLifetime:    30 * time.Minute,
		ConnMaxIdleTime:    5 * time.Minute,
		SlowQueryThreshold: 200 * time.Millisecond,
		LogLevel:           "warn",
		LoadBalancePolicy:  "round_robin",
	}
}

// connectionConfigFrom overrides the defaults with configured values
func connectionConfigFrom(cfg config.DatabaseConfig) ConnectionConfig {
	connConfig := DefaultConnectionConfig()

	if cfg.MaxOpenConns > 0 {
		connConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		connConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		connConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		connConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}
	if cfg.SlowQueryThreshold > 0 {
		connConfig.SlowQueryThreshold = cfg.SlowQueryThreshold
	}
	if cfg.LogLevel != "" {
		connConfig.LogLevel = cfg.LogLevel
	}
	return connConfig
}

// NewConnectionManager opens the primary connection and registers replicas
func NewConnectionManager(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*ConnectionManager, error) {
	connConfig := connectionConfigFrom(cfg)

	cm := &ConnectionManager{
		config: cfg,
		logger: log.Named("postgres"),
	}

	if err := cm.initializePrimaryConnection(ctx, connConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize primary connection: %w", err)
	}

	if err := cm.initializeReadReplicas(connConfig); err != nil {
		cm.logger.Warn("Failed to initialize read replicas", zap.Error(err))
	}

	if cfg.AutoMigrate {
		if err := cm.db.WithContext(ctx).AutoMigrate(gormModels.AllModels()...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	cm.logger.Info("Database connection manager initialized",
		zap.Int("max_open_conns", connConfig.MaxOpenConns),
		zap.Int("max_idle_conns", connConfig.MaxIdleConns),
		zap.Duration("conn_max_lifetime", connConfig.ConnMaxLifetime),
		zap.Duration("slow_query_threshold", connConfig.SlowQueryThreshold),
		zap.Int("read_replicas", len(cfg.ReadReplicas)),
	)

	return cm, nil
}

func (cm *ConnectionManager) initializePrimaryConnection(ctx context.Context, connConfig ConnectionConfig) error {
	db, err := gorm.Open(postgres.Open(cm.config.DSN()), &gorm.Config{
		Logger:                 newGORMLogger(cm.logger, connConfig),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(connConfig.MaxOpenConns)
	sqlDB.SetMaxIdleConns(connConfig.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(connConfig.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connConfig.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	cm.db = db
	cm.writeDB = sqlDB
	return nil
}

// initializeReadReplicas registers each replica host with the primary's
// credentials through the GORM DB resolver
func (cm *ConnectionManager) initializeReadReplicas(connConfig ConnectionConfig) error {
	if len(cm.config.ReadReplicas) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cm.config.ReadReplicas))
	for i, host := range cm.config.ReadReplicas {
		replica := cm.config
		replica.Host = host
		replicas[i] = postgres.Open(replica.DSN())
	}

	err := cm.db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   getLoadBalancePolicy(connConfig.LoadBalancePolicy),
	}).
		SetMaxOpenConns(connConfig.MaxOpenConns).
		SetMaxIdleConns(connConfig.MaxIdleConns).
		SetConnMaxLifetime(connConfig.ConnMaxLifetime))
	if err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}

	cm.logger.Info("Read replicas configured",
		zap.Int("replica_count", len(replicas)),
		zap.String("load_balance_policy", connConfig.LoadBalancePolicy),
	)
	return nil
}

// GetDB returns the main database connection
func (cm *ConnectionManager) GetDB() *gorm.DB {
	return cm.db
}

// SQLDB returns the primary pool, used for pool statistics
func (cm *ConnectionManager) SQLDB() *sql.DB {
	return cm.writeDB
}

// HealthCheck pings the primary
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.writeDB.PingContext(ctx); err != nil {
		return fmt.Errorf("primary database ping failed: %w", err)
	}
	return nil
}

// Close closes the primary pool; replica pools close with it
func (cm *ConnectionManager) Close() error {
	if cm.writeDB == nil {
		return nil
	}
	if err := cm.writeDB.Close(); err != nil {
		cm.logger.Error("Failed to close primary database", zap.Error(err))
		return err
	}
	return nil
}

// getLoadBalancePolicy converts string to dbresolver policy
func getLoadBalancePolicy(policy string) dbresolver.Policy {
	switch policy {
	case "random":
		return dbresolver.RandomPolicy{}
	case "round_robin":
		return dbresolver.RoundRobinPolicy()
	default:
		return dbresolver.RandomPolicy{}
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	}
	return logger.Silent
}
