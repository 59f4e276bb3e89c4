package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	pkgch "SignalGate/pkg/clickhouse"
	"SignalGate/pkg/logger"
)

// CHCandleStore reads OHLCV bars from ClickHouse. Bars coarser than the
// stored resolution are folded in SQL.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *logger.Logger
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

func NewCHCandleStore(ch *pkgch.Client, database, table string) *CHCandleStore {
	if table == "" {
		table = "candles_1m"
	}
	if database != "" {
		table = database + "." + table
	}
	return &CHCandleStore{db: ch.DB(), table: table, l: logger.NewNop()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *logger.Logger) {
	if l != nil {
		s.l = l
	}
}

// GetLatestNCandles returns the newest n bars in ascending time order.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	start := time.Now()
	bucket, err := bucketExpr(tf)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`
        SELECT b, symbol, o, h, l, c, v FROM (
            SELECT %s AS b, symbol,
                   argMin(open, bucket) AS o, max(high) AS h, min(low) AS l,
                   argMax(close, bucket) AS c, sum(vol) AS v
            FROM %s
            WHERE symbol = ?
            GROUP BY b, symbol
            ORDER BY b DESC
            LIMIT ?
        ) ORDER BY b ASC
    `, bucket, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.l.Error("clickhouse latest_candles query error",
			logger.String("table", s.table),
			logger.String("symbol", symbol),
			logger.String("tf", string(tf)),
			logger.Error(err),
		)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse latest_candles ok",
		logger.String("symbol", symbol),
		logger.String("tf", string(tf)),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func bucketExpr(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1m:
		return "bucket", nil
	case domrepo.TF5m:
		return "toStartOfFiveMinutes(bucket)", nil
	case domrepo.TF1d:
		return "toStartOfDay(bucket)", nil
	default:
		return "", fmt.Errorf("unsupported timeframe: %s", tf)
	}
}
