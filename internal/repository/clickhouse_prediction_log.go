package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CoinCast/internal/domain/models"
	pkgch "CoinCast/pkg/clickhouse"
	applogger "CoinCast/pkg/logger"
	"CoinCast/pkg/util"
)

// CHPredictionLog implements PredictionLog backed by ClickHouse. The table is
// append-only; the "latest run supersedes stale" rule is applied at read time
// with argMax, older rows are never deleted.
type CHPredictionLog struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPredictionLog(ch *pkgch.Client, table string) *CHPredictionLog {
	return &CHPredictionLog{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPredictionLog) SetLogger(l *applogger.Logger) { s.l = l }

// PredictionSchema returns the idempotent DDL for the prediction log table.
func PredictionSchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        run_ts DateTime('UTC'),
        target_date Date,
        predicted Float64
    ) ENGINE = MergeTree ORDER BY (target_date, run_ts)`, table)
}

func (s *CHPredictionLog) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, PredictionSchema(s.table)); err != nil {
		return models.NewStorageError("predictions init", err)
	}
	return nil
}

func (s *CHPredictionLog) Append(ctx context.Context, rec models.PredictionRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (run_ts, target_date, predicted) VALUES (?, ?, ?)", s.table)
	if _, err := s.db.ExecContext(ctx, q, rec.RunTS.UTC(), util.Day(rec.TargetDate), rec.PredictedPrice); err != nil {
		s.logError("append", err, applogger.String("target_date", util.FormatDate(rec.TargetDate)))
		return models.NewStorageError("predictions append", err)
	}
	return nil
}

func (s *CHPredictionLog) ExistsForRun(ctx context.Context, targetDate, runDay time.Time) (bool, error) {
	q := fmt.Sprintf("SELECT count() FROM %s WHERE target_date = ? AND toDate(run_ts) = ?", s.table)
	var cnt uint64
	if err := s.db.QueryRowContext(ctx, q, util.Day(targetDate), util.Day(runDay)).Scan(&cnt); err != nil {
		s.logError("exists", err, applogger.String("target_date", util.FormatDate(targetDate)))
		return false, models.NewStorageError("predictions exists", err)
	}
	return cnt > 0, nil
}

// LatestPerTargetDate anchors the windowDays cutoff at the current wall-clock
// UTC day. History is an operator-facing read of the live log, not part of the
// injected-run-date path that Predict uses.
func (s *CHPredictionLog) LatestPerTargetDate(ctx context.Context, limit, windowDays int) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`
        SELECT target_date, argMax(predicted, run_ts) AS predicted, max(run_ts) AS run_ts
        FROM %s
        %s
        GROUP BY target_date
        ORDER BY target_date DESC
        LIMIT ?`, s.table, windowClause(windowDays))

	var args []interface{}
	if windowDays > 0 {
		args = append(args, util.Day(time.Now()).AddDate(0, 0, -windowDays))
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logError("latest_per_target query", err, applogger.Int("limit", limit))
		return nil, models.NewStorageError("predictions read", err)
	}
	defer rows.Close()

	out := make([]models.PredictionRecord, 0, limit)
	for rows.Next() {
		var (
			rec        models.PredictionRecord
			targetDate time.Time
			runTS      time.Time
		)
		if err := rows.Scan(&targetDate, &rec.PredictedPrice, &runTS); err != nil {
			s.logError("latest_per_target scan", err)
			return nil, models.NewStorageError("predictions read", err)
		}
		rec.TargetDate = util.Day(targetDate)
		rec.RunTS = runTS.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.logError("latest_per_target rows", err)
		return nil, models.NewStorageError("predictions read", err)
	}
	return out, nil
}

func (s *CHPredictionLog) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE "+s.table); err != nil {
		s.logError("truncate", err)
		return models.NewStorageError("predictions truncate", err)
	}
	return nil
}

func windowClause(windowDays int) string {
	if windowDays > 0 {
		return "WHERE target_date >= ?"
	}
	return ""
}

func (s *CHPredictionLog) logError(op string, err error, fields ...applogger.Field) {
	if s.l == nil {
		return
	}
	fields = append(fields,
		applogger.String("table", s.table),
		applogger.Error(err),
	)
	s.l.Error("clickhouse predictions "+op+" error", fields...)
}
