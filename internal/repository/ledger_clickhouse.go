package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	pkgch "SignalGate/pkg/clickhouse"
	"SignalGate/pkg/logger"

	"github.com/shopspring/decimal"
)

// ClickHouseLedgerSchema creates the ledger table. Filter columns are
// denormalized out of the signal JSON so they can sit in the sort key.
func ClickHouseLedgerSchema(database, table string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
			id                 UUID,
			created_at         Int64,
			engine_version     LowCardinality(String),
			ticker             LowCardinality(String),
			timeframe          LowCardinality(String),
			quality            LowCardinality(String),
			decision           LowCardinality(String),
			decision_reason    String,
			signal             String,
			phase_context      Nullable(String),
			decision_breakdown String,
			confluence_score   Decimal(6, 2),
			execution          Nullable(String),
			exit               Nullable(String),
			regime             String,
			hypothetical       Nullable(String)
		) ENGINE = MergeTree
		PARTITION BY toYYYYMM(toDateTime(intDiv(created_at, 1000)))
		ORDER BY (created_at, id)`, database, table),
	}
}

const chLedgerColumns = `id, created_at, engine_version, decision, decision_reason, signal, phase_context,
	decision_breakdown, confluence_score, execution, exit, regime, hypothetical`

// ClickHouseLedger stores the ledger in a MergeTree table.
type ClickHouseLedger struct {
	db      *sql.DB
	table   string
	timeout time.Duration
	stamp   *Stamper
	l       *logger.Logger
}

var _ domrepo.Ledger = (*ClickHouseLedger)(nil)

func NewClickHouseLedger(ch *pkgch.Client, database, table string, timeout time.Duration, stamp *Stamper) *ClickHouseLedger {
	if table == "" {
		table = "decision_ledger"
	}
	if database != "" {
		table = database + "." + table
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if stamp == nil {
		stamp = NewStamper(nil)
	}
	return &ClickHouseLedger{db: ch.DB(), table: table, timeout: timeout, stamp: stamp, l: logger.NewNop()}
}

// SetLogger injects a structured logger.
func (r *ClickHouseLedger) SetLogger(l *logger.Logger) {
	if l != nil {
		r.l = l
	}
}

func (r *ClickHouseLedger) Backend() string { return "clickhouse" }

func (r *ClickHouseLedger) Append(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	stored, err := r.stamp.Stamp(entry)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	row, err := toRow(stored)
	if err != nil {
		return models.LedgerEntry{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	q := fmt.Sprintf(`INSERT INTO %s (ticker, timeframe, quality, %s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, r.table, chLedgerColumns)
	_, err = r.db.ExecContext(ctx, q,
		stored.Signal.Ticker, stored.Signal.Signal.Timeframe, string(stored.Signal.Signal.Quality),
		row.ID, row.CreatedAt, row.EngineVersion, row.Decision, row.DecisionReason,
		string(row.Signal), nullString(row.PhaseContext), string(row.DecisionBreakdown), row.ConfluenceScore,
		nullString(row.Execution), nullString(row.Exit), string(row.Regime), nullString(row.Hypothetical),
	)
	if err != nil {
		r.l.Error("clickhouse ledger insert failed",
			logger.String("table", r.table),
			logger.String("symbol", stored.Signal.Ticker),
			logger.Error(err),
		)
		return models.LedgerEntry{}, fmt.Errorf("%w: insert: %w", domrepo.ErrLedgerUnavailable, err)
	}
	r.l.Debug("clickhouse ledger insert ok",
		logger.String("table", r.table),
		logger.String("id", stored.ID),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return stored, nil
}

func (r *ClickHouseLedger) Query(ctx context.Context, f models.LedgerFilter) ([]models.LedgerEntry, error) {
	f = f.Normalize()
	where, args := chWhere(f)
	args = append(args, f.Limit)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT ?`, chLedgerColumns, r.table, where)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domrepo.ErrLedgerUnavailable, err)
	}
	defer rows.Close()

	out := make([]models.LedgerEntry, 0, f.Limit)
	for rows.Next() {
		var (
			row                                  ledgerRow
			signal, breakdown, regime            string
			phase, execution, exit, hypothetical sql.NullString
			score                                decimal.Decimal
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.EngineVersion, &row.Decision, &row.DecisionReason,
			&signal, &phase, &breakdown, &score, &execution, &exit, &regime, &hypothetical); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		row.Signal = []byte(signal)
		row.DecisionBreakdown = []byte(breakdown)
		row.Regime = []byte(regime)
		row.ConfluenceScore = score
		row.PhaseContext = nullBytes(phase)
		row.Execution = nullBytes(execution)
		row.Exit = nullBytes(exit)
		row.Hypothetical = nullBytes(hypothetical)

		e, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *ClickHouseLedger) Count(ctx context.Context, f models.LedgerFilter) (int64, error) {
	where, args := chWhere(f)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n uint64
	q := fmt.Sprintf(`SELECT count() FROM %s%s`, r.table, where)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domrepo.ErrLedgerUnavailable, err)
	}
	return int64(n), nil
}

func chWhere(f models.LedgerFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(expr string, v interface{}) {
		conds = append(conds, expr)
		args = append(args, v)
	}
	if f.Since > 0 {
		add("created_at >= ?", f.Since)
	}
	if f.Until > 0 {
		add("created_at <= ?", f.Until)
	}
	if f.Decision != "" {
		add("decision = ?", string(f.Decision))
	}
	if f.Ticker != "" {
		add("ticker = ?", f.Ticker)
	}
	if f.Timeframe != "" {
		add("timeframe = ?", f.Timeframe)
	}
	if f.Quality != "" {
		add("quality = ?", string(f.Quality))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

func nullBytes(s sql.NullString) []byte {
	if !s.Valid {
		return nil
	}
	return []byte(s.String)
}
