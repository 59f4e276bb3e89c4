package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const pqUniqueViolation = "23505"

// PostgresLedgerSchema creates the ledger table and its query indexes.
func PostgresLedgerSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id                 UUID PRIMARY KEY,
			created_at         BIGINT NOT NULL,
			engine_version     TEXT NOT NULL,
			signal             JSONB NOT NULL,
			phase_context      JSONB,
			decision           TEXT NOT NULL,
			decision_reason    TEXT NOT NULL,
			decision_breakdown JSONB NOT NULL,
			confluence_score   NUMERIC(6,2) NOT NULL,
			execution          JSONB,
			exit               JSONB,
			regime             JSONB NOT NULL,
			hypothetical       JSONB
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s (created_at DESC)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_decision ON %[1]s (decision)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_ticker ON %[1]s ((signal->>'ticker'))`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_timeframe ON %[1]s ((signal->'signal'->>'timeframe'))`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_quality ON %[1]s ((signal->'signal'->>'quality'))`, table),
	}
}

const ledgerColumns = `id, created_at, engine_version, signal, phase_context, decision, decision_reason,
	decision_breakdown, confluence_score, execution, exit, regime, hypothetical`

// ledgerRow is the SQL shape of a LedgerEntry. JSONB columns travel as raw bytes.
type ledgerRow struct {
	ID                string          `db:"id"`
	CreatedAt         int64           `db:"created_at"`
	EngineVersion     string          `db:"engine_version"`
	Signal            []byte          `db:"signal"`
	PhaseContext      []byte          `db:"phase_context"`
	Decision          string          `db:"decision"`
	DecisionReason    string          `db:"decision_reason"`
	DecisionBreakdown []byte          `db:"decision_breakdown"`
	ConfluenceScore   decimal.Decimal `db:"confluence_score"`
	Execution         []byte          `db:"execution"`
	Exit              []byte          `db:"exit"`
	Regime            []byte          `db:"regime"`
	Hypothetical      []byte          `db:"hypothetical"`
}

// PostgresLedger stores the ledger in PostgreSQL with JSONB payload columns.
type PostgresLedger struct {
	db      *sqlx.DB
	table   string
	timeout time.Duration
	stamp   *Stamper
	l       *logger.Logger
}

var _ domrepo.Ledger = (*PostgresLedger)(nil)

func NewPostgresLedger(db *sqlx.DB, table string, timeout time.Duration, stamp *Stamper) *PostgresLedger {
	if table == "" {
		table = "decision_ledger"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if stamp == nil {
		stamp = NewStamper(nil)
	}
	return &PostgresLedger{db: db, table: table, timeout: timeout, stamp: stamp, l: logger.NewNop()}
}

// SetLogger injects a structured logger.
func (r *PostgresLedger) SetLogger(l *logger.Logger) {
	if l != nil {
		r.l = l
	}
}

func (r *PostgresLedger) Backend() string { return "postgres" }

func (r *PostgresLedger) Append(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
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

	q := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`, r.table, ledgerColumns)
	_, err = r.db.ExecContext(ctx, q,
		row.ID, row.CreatedAt, row.EngineVersion, row.Signal, nullable(row.PhaseContext),
		row.Decision, row.DecisionReason, row.DecisionBreakdown, row.ConfluenceScore,
		nullable(row.Execution), nullable(row.Exit), row.Regime, nullable(row.Hypothetical),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return models.LedgerEntry{}, fmt.Errorf("%w: %s", domrepo.ErrDuplicateEntry, stored.ID)
		}
		r.l.Error("postgres ledger insert failed", logger.String("table", r.table), logger.Error(err))
		return models.LedgerEntry{}, fmt.Errorf("%w: insert: %w", domrepo.ErrLedgerUnavailable, err)
	}
	return stored, nil
}

func (r *PostgresLedger) Query(ctx context.Context, f models.LedgerFilter) ([]models.LedgerEntry, error) {
	f = f.Normalize()
	where, args := pgWhere(f)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args = append(args, f.Limit)
	q := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC LIMIT $%d`,
		ledgerColumns, r.table, where, len(args))

	var rows []ledgerRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("%w: query: %w", domrepo.ErrLedgerUnavailable, err)
	}
	out := make([]models.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		e, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *PostgresLedger) Count(ctx context.Context, f models.LedgerFilter) (int64, error) {
	where, args := pgWhere(f)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var n int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, r.table, where)
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, fmt.Errorf("%w: count: %w", domrepo.ErrLedgerUnavailable, err)
	}
	return n, nil
}

func pgWhere(f models.LedgerFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(expr string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	if f.Since > 0 {
		add("created_at >= $%d", f.Since)
	}
	if f.Until > 0 {
		add("created_at <= $%d", f.Until)
	}
	if f.Decision != "" {
		add("decision = $%d", string(f.Decision))
	}
	if f.Ticker != "" {
		add("signal->>'ticker' = $%d", f.Ticker)
	}
	if f.Timeframe != "" {
		add("signal->'signal'->>'timeframe' = $%d", f.Timeframe)
	}
	if f.Quality != "" {
		add("signal->'signal'->>'quality' = $%d", string(f.Quality))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func toRow(e models.LedgerEntry) (ledgerRow, error) {
	row := ledgerRow{
		ID:              e.ID,
		CreatedAt:       e.CreatedAt,
		EngineVersion:   e.EngineVersion,
		Decision:        string(e.Decision),
		DecisionReason:  e.DecisionReason,
		ConfluenceScore: e.ConfluenceScore,
	}
	var err error
	if row.Signal, err = json.Marshal(e.Signal); err != nil {
		return row, fmt.Errorf("marshal signal: %w", err)
	}
	if row.DecisionBreakdown, err = json.Marshal(e.DecisionBreakdown); err != nil {
		return row, fmt.Errorf("marshal breakdown: %w", err)
	}
	if row.Regime, err = json.Marshal(e.Regime); err != nil {
		return row, fmt.Errorf("marshal regime: %w", err)
	}
	for _, opt := range []struct {
		dst    *[]byte
		v      interface{}
		absent bool
	}{
		{&row.PhaseContext, e.PhaseContext, e.PhaseContext == nil},
		{&row.Execution, e.Execution, e.Execution == nil},
		{&row.Exit, e.Exit, e.Exit == nil},
		{&row.Hypothetical, e.Hypothetical, e.Hypothetical == nil},
	} {
		if opt.absent {
			continue
		}
		if *opt.dst, err = json.Marshal(opt.v); err != nil {
			return row, fmt.Errorf("marshal optional column: %w", err)
		}
	}
	return row, nil
}

func fromRow(row ledgerRow) (models.LedgerEntry, error) {
	e := models.LedgerEntry{
		ID:              row.ID,
		CreatedAt:       row.CreatedAt,
		EngineVersion:   row.EngineVersion,
		Decision:        models.LedgerDecision(row.Decision),
		DecisionReason:  row.DecisionReason,
		ConfluenceScore: row.ConfluenceScore,
	}
	if err := json.Unmarshal(row.Signal, &e.Signal); err != nil {
		return e, fmt.Errorf("unmarshal signal: %w", err)
	}
	if err := json.Unmarshal(row.DecisionBreakdown, &e.DecisionBreakdown); err != nil {
		return e, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	if err := json.Unmarshal(row.Regime, &e.Regime); err != nil {
		return e, fmt.Errorf("unmarshal regime: %w", err)
	}
	if len(row.PhaseContext) > 0 {
		e.PhaseContext = new(models.PhaseContext)
		if err := json.Unmarshal(row.PhaseContext, e.PhaseContext); err != nil {
			return e, fmt.Errorf("unmarshal phase_context: %w", err)
		}
	}
	if len(row.Execution) > 0 {
		e.Execution = new(models.Execution)
		if err := json.Unmarshal(row.Execution, e.Execution); err != nil {
			return e, fmt.Errorf("unmarshal execution: %w", err)
		}
	}
	if len(row.Exit) > 0 {
		e.Exit = new(models.Exit)
		if err := json.Unmarshal(row.Exit, e.Exit); err != nil {
			return e, fmt.Errorf("unmarshal exit: %w", err)
		}
	}
	if len(row.Hypothetical) > 0 {
		e.Hypothetical = new(models.Hypothetical)
		if err := json.Unmarshal(row.Hypothetical, e.Hypothetical); err != nil {
			return e, fmt.Errorf("unmarshal hypothetical: %w", err)
		}
	}
	return e, nil
}

// nullable maps an absent JSON column to SQL NULL.
func nullable(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
