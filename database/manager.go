/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	bunschema "github.com/uptrace/bun/schema"

	"github.com/tomoncle/querydsl/schema"
)

// MemoryDBName selects a private in-memory sqlite database. It lives as
// long as the manager's single connection.
const MemoryDBName = ":memory:"

// connector knows how to reach one kind of database.
type connector struct {
	driver  string
	dialect func() bunschema.Dialect
	dsn     func(c *ConnectionConfig) string
}

var connectors = map[string]connector{
	"mysql": {
		driver:  "mysql",
		dialect: func() bunschema.Dialect { return mysqldialect.New() },
		dsn:     mysqlDSN,
	},
	"postgres": {
		driver:  "postgres",
		dialect: func() bunschema.Dialect { return pgdialect.New() },
		dsn:     postgresDSN,
	},
	"sqlite": {
		driver:  sqliteshim.ShimName,
		dialect: func() bunschema.Dialect { return sqlitedialect.New() },
		dsn:     sqliteDSN,
	},
}

// connectorFor resolves a configured type, accepting the postgresql and
// sqlite3 spellings.
func connectorFor(typ string) (connector, bool) {
	switch typ {
	case "postgresql":
		typ = "postgres"
	case "sqlite3":
		typ = "sqlite"
	}
	c, ok := connectors[typ]
	return c, ok
}

func mysqlDSN(c *ConnectionConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = c.Username
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Timeout = c.ConnectTimeout
	cfg.ReadTimeout = c.ReadTimeout
	cfg.WriteTimeout = c.WriteTimeout
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func postgresDSN(c *ConnectionConfig) string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func sqliteDSN(c *ConnectionConfig) string {
	if c.DBName == MemoryDBName {
		return MemoryDBName
	}
	return c.DBName + ".db"
}

func isMemory(c *ConnectionConfig) bool {
	return c.DBName == MemoryDBName
}

type defaultDatabaseManager struct {
	config  *ConnectionConfig
	migrate DataMigrateConfig
	reg     *schema.Registry
	logger  Logger

	mu        sync.RWMutex
	db        *bun.DB
	sqlDB     *sql.DB
	lastError error
	health    *HealthStatus

	// stopHealth cancels the background health loop; nil when none runs.
	stopHealth context.CancelFunc
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by bun whose
// migrations create the entities registered in reg. A nil cfg selects
// DefaultConfig.
func NewDatabaseManager(cfg *Config, reg *schema.Registry) AbstractDatabaseManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cc := cfg.ConnectionConfig
	if cc.ConnectTimeout <= 0 {
		cc.ConnectTimeout = 30 * time.Second
	}
	return &defaultDatabaseManager{
		config:  &cc,
		migrate: cfg.DataMigrateConfig,
		reg:     reg,
		logger:  GetLogger(),
		health:  &HealthStatus{},
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := dm.openLocked(ctx); err != nil {
		return err
	}
	if dm.config.HealthCheckInterval > 0 && dm.stopHealth == nil {
		loopCtx, cancel := context.WithCancel(context.Background())
		dm.stopHealth = cancel
		go dm.healthLoop(loopCtx)
	}
	dm.logger.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	return nil
}

// openLocked opens and verifies a connection unless one is already open.
func (dm *defaultDatabaseManager) openLocked(ctx context.Context) error {
	if dm.db != nil {
		return nil
	}
	c, ok := connectorFor(dm.config.Type)
	if !ok {
		return fmt.Errorf("unsupported database type: %s", dm.config.Type)
	}
	sqlDB, err := sql.Open(c.driver, c.dsn(dm.config))
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	dm.configurePool(sqlDB)
	db := bun.NewDB(sqlDB, c.dialect())
	dm.addHooks(db)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		dm.lastError = err
		return fmt.Errorf("database connection test failed: %w", err)
	}
	if c.driver == sqliteshim.ShimName && dm.migrate.EnableForeignKey {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable sqlite foreign keys: %w", err)
		}
	}
	dm.db, dm.sqlDB, dm.lastError = db, sqlDB, nil
	return nil
}

func (dm *defaultDatabaseManager) addHooks(db *bun.DB) {
	if dm.config.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	db.AddQueryHook(NewQueryHook(nil, "QUERYDSL_SQL_LOG", false))
	if dm.config.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(dm.config.SlowQueryTime, dm.logger))
	}
}

func (dm *defaultDatabaseManager) configurePool(sqlDB *sql.DB) {
	if isMemory(dm.config) {
		// every new connection would open an empty database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)
}

// closeLocked closes the connection and leaves the health loop running.
func (dm *defaultDatabaseManager) closeLocked() error {
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	return err
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.stopHealth != nil {
		dm.stopHealth()
		dm.stopHealth = nil
	}
	wasOpen := dm.db != nil
	err := dm.closeLocked()
	switch {
	case err != nil:
		dm.logger.Error("Failed to close database connection", "error", err)
	case wasOpen:
		dm.logger.Info("Database connection closed")
	}
	return err
}

// Reconnect replaces the connection. A running health loop keeps running.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.logger.Info("Reconnecting to the database", "type", dm.config.Type)
	if err := dm.closeLocked(); err != nil {
		dm.logger.Warn("Error closing previous connection", "error", err)
	}
	return dm.openLocked(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	start := time.Now()
	status := &HealthStatus{LastCheckTime: start}
	if dm.db == nil {
		status.LastError = "Database not initialized"
		dm.health = status
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := dm.db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Connected = err == nil
	status.Healthy = err == nil
	if err != nil {
		status.LastError = err.Error()
	}
	dm.lastError = err

	stats := dm.sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections
	dm.health = status
	return status
}

func (dm *defaultDatabaseManager) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		status := dm.HealthCheck(checkCtx)
		cancel()
		if !status.Healthy && dm.config.EnableReconnect {
			dm.reconnectWithRetry(ctx)
		}
	}
}

// reconnectWithRetry tries up to MaxReconnectTries times, waiting
// ReconnectInterval before each try, and gives up early when ctx ends.
func (dm *defaultDatabaseManager) reconnectWithRetry(ctx context.Context) {
	for try := 1; try <= dm.config.MaxReconnectTries; try++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(dm.config.ReconnectInterval):
		}
		connectCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
		err := dm.Reconnect(connectCtx)
		cancel()
		if err == nil {
			dm.logger.Info("Reconnect succeeded", "try", try)
			return
		}
		dm.logger.Error("Reconnect failed", "error", err, "try", try)
	}
	dm.logger.Error("Max reconnect attempts reached", "tries", dm.config.MaxReconnectTries)
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	return NewMigrationManager(db, dm.reg, dm.logger, dm.migrate).RunMigrations(ctx)
}

// SetLogger replaces the logger; nil is ignored.
func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
