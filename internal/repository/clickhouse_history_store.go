package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
	pkgch "CoinCast/pkg/clickhouse"
	applogger "CoinCast/pkg/logger"
	"CoinCast/pkg/util"
)

const historyColumns = "date, price, lag_1, lag_2, lag_3, lag_4, lag_5, lag_6, lag_7, ma_7, ma_14, ret_1d, ret_7d, dow"

// CHHistoryStore implements HistoryStore backed by ClickHouse. The table is a
// ReplacingMergeTree keyed by date with a version column, so an insert for an
// existing date atomically supersedes the old row and FINAL reads never
// surface both.
type CHHistoryStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, table string) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

// HistorySchema returns the idempotent DDL for the history table.
func HistorySchema(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        date Date,
        price Float64,
        lag_1 Nullable(Float64), lag_2 Nullable(Float64), lag_3 Nullable(Float64),
        lag_4 Nullable(Float64), lag_5 Nullable(Float64), lag_6 Nullable(Float64),
        lag_7 Nullable(Float64),
        ma_7 Nullable(Float64), ma_14 Nullable(Float64),
        ret_1d Nullable(Float64), ret_7d Nullable(Float64),
        dow Int8,
        version DateTime64(3) DEFAULT now64(3)
    ) ENGINE = ReplacingMergeTree(version) ORDER BY date`, table)
}

func (s *CHHistoryStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, HistorySchema(s.table)); err != nil {
		return models.NewStorageError("history init", err)
	}
	return nil
}

func (s *CHHistoryStore) Upsert(ctx context.Context, row models.HistoryRow) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, historyColumns)
	if _, err := s.db.ExecContext(ctx, q, rowArgs(row)...); err != nil {
		s.logError("upsert", err, applogger.String("date", util.FormatDate(row.Date)))
		return models.NewStorageError("history upsert", err)
	}
	return nil
}

func (s *CHHistoryStore) UpsertBatch(ctx context.Context, rows []models.HistoryRow) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*14)
	for _, r := range rows {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args, rowArgs(r)...)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, historyColumns, strings.Join(placeholders, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logError("upsert_batch", err, applogger.Int("rows", len(rows)))
		return models.NewStorageError("history batch upsert", err)
	}
	return nil
}

func (s *CHHistoryStore) Exists(ctx context.Context, date time.Time) (bool, error) {
	q := fmt.Sprintf("SELECT count() FROM %s FINAL WHERE date = ?", s.table)
	var cnt uint64
	if err := s.db.QueryRowContext(ctx, q, util.Day(date)).Scan(&cnt); err != nil {
		s.logError("exists", err, applogger.String("date", util.FormatDate(date)))
		return false, models.NewStorageError("history exists", err)
	}
	return cnt > 0, nil
}

func (s *CHHistoryStore) Range(ctx context.Context, hq domrepo.HistoryQuery) ([]models.HistoryRow, error) {
	start := time.Now()

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s FINAL", historyColumns, s.table)
	var args []interface{}
	var conds []string
	if !hq.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, util.Day(hq.From))
	}
	if !hq.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, util.Day(hq.To))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	if hq.Order == domrepo.OrderDesc {
		sb.WriteString(" ORDER BY date DESC")
	} else {
		sb.WriteString(" ORDER BY date ASC")
	}
	if hq.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, hq.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		s.logError("range query", err)
		return nil, models.NewStorageError("history range", err)
	}
	defer rows.Close()

	out, err := scanHistoryRows(rows)
	if err != nil {
		s.logError("range scan", err)
		return nil, models.NewStorageError("history range", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse history range ok",
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHHistoryStore) LatestN(ctx context.Context, n int) ([]models.HistoryRow, error) {
	q := fmt.Sprintf("SELECT %s FROM %s FINAL ORDER BY date DESC LIMIT ?", historyColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		s.logError("latest query", err, applogger.Int("limit", n))
		return nil, models.NewStorageError("history latest", err)
	}
	defer rows.Close()

	tmp, err := scanHistoryRows(rows)
	if err != nil {
		s.logError("latest scan", err, applogger.Int("limit", n))
		return nil, models.NewStorageError("history latest", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

func (s *CHHistoryStore) Count(ctx context.Context) (int, error) {
	var cnt uint64
	q := fmt.Sprintf("SELECT count() FROM %s FINAL", s.table)
	if err := s.db.QueryRowContext(ctx, q).Scan(&cnt); err != nil {
		s.logError("count", err)
		return 0, models.NewStorageError("history count", err)
	}
	return int(cnt), nil
}

func (s *CHHistoryStore) Truncate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "TRUNCATE TABLE "+s.table); err != nil {
		s.logError("truncate", err)
		return models.NewStorageError("history truncate", err)
	}
	return nil
}

func (s *CHHistoryStore) logError(op string, err error, fields ...applogger.Field) {
	if s.l == nil {
		return
	}
	fields = append(fields,
		applogger.String("table", s.table),
		applogger.Error(err),
	)
	s.l.Error("clickhouse history "+op+" error", fields...)
}

func rowArgs(r models.HistoryRow) []interface{} {
	return []interface{}{
		util.Day(r.Date), r.Price,
		r.Lags[0], r.Lags[1], r.Lags[2], r.Lags[3], r.Lags[4], r.Lags[5], r.Lags[6],
		r.MA7, r.MA14, r.Ret1D, r.Ret7D,
		int8(r.DOW),
	}
}

func scanHistoryRows(rows *sql.Rows) ([]models.HistoryRow, error) {
	out := make([]models.HistoryRow, 0, 64)
	for rows.Next() {
		var (
			r    models.HistoryRow
			date time.Time
			lags [7]sql.NullFloat64
			ma7, ma14, ret1, ret7 sql.NullFloat64
			dow  int8
		)
		if err := rows.Scan(&date, &r.Price,
			&lags[0], &lags[1], &lags[2], &lags[3], &lags[4], &lags[5], &lags[6],
			&ma7, &ma14, &ret1, &ret7, &dow); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.Date = util.Day(date)
		r.DOW = int(dow)
		for i := range lags {
			r.Lags[i] = nullable(lags[i])
		}
		r.MA7 = nullable(ma7)
		r.MA14 = nullable(ma14)
		r.Ret1D = nullable(ret1)
		r.Ret7D = nullable(ret7)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
