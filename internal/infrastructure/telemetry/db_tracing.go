package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/medstock/backend/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls SQL spans for the sql storage driver
type DBTracingConfig struct {
	Enabled            bool
	LogFullSQL         bool          // keep query variables in db.statement; never in production
	SlowQueryThreshold time.Duration // queries slower than this get db.slow_query=true
	DBSystem           string
}

// DefaultDBTracingConfig returns tracing disabled, variables hidden and a 200ms slow threshold
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		DBSystem:           config.DatabaseDriverPostgres,
	}
}

// DBTracingConfigFrom derives SQL tracing from the telemetry and database sections
func DBTracingConfigFrom(t config.TelemetryConfig, db config.DatabaseConfig) DBTracingConfig {
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = t.Enabled
	cfg.LogFullSQL = t.DBLogFullSQL
	if db.Driver != "" {
		cfg.DBSystem = db.Driver
	}
	if db.SlowThreshold > 0 {
		cfg.SlowQueryThreshold = db.SlowThreshold
	}
	return cfg
}

// DBTracingPlugin installs otelgorm plus the ledger's slow-query and error marking
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a DBTracingPlugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

type queryStartKey struct{}

// RegisterOtelGorm adds a span per statement, so the SELECT ... FOR UPDATE and the
// upsert of one read-modify-write cycle show up under the service span.
// It is a no-op when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThreshold),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerCallbacks stamps the start time before each statement and annotates the
// otelgorm span after it, ahead of otelgorm ending the span.
func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	for _, op := range []struct {
		name   string
		before func(string) error
		after  func(string) error
	}{
		{"create",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, markQueryStart) },
			func(n string) error {
				return cb.Create().After("gorm:create").Before("otel:after:create").Register(n, p.annotateSpan)
			}},
		{"query",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, markQueryStart) },
			func(n string) error {
				return cb.Query().After("gorm:query").Before("otel:after:query").Register(n, p.annotateSpan)
			}},
		{"update",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, markQueryStart) },
			func(n string) error {
				return cb.Update().After("gorm:update").Before("otel:after:update").Register(n, p.annotateSpan)
			}},
		{"delete",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, markQueryStart) },
			func(n string) error {
				return cb.Delete().After("gorm:delete").Before("otel:after:delete").Register(n, p.annotateSpan)
			}},
		{"row",
			func(n string) error { return cb.Row().Before("gorm:row").Register(n, markQueryStart) },
			func(n string) error {
				return cb.Row().After("gorm:row").Before("otel:after:row").Register(n, p.annotateSpan)
			}},
		{"raw",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, markQueryStart) },
			func(n string) error {
				return cb.Raw().After("gorm:raw").Before("otel:after:raw").Register(n, p.annotateSpan)
			}},
	} {
		if err := op.before("medstock_timing:before_" + op.name); err != nil {
			return err
		}
		if err := op.after("medstock_timing:after_" + op.name); err != nil {
			return err
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

// annotateSpan adds rows, table, error status and the slow-query flag to the statement span
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(started); elapsed > p.config.SlowQueryThreshold {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThreshold.Milliseconds()),
		))
	}
}
