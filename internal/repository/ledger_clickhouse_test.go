package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	pkgch "SignalGate/pkg/clickhouse"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClickHouseLedger(t *testing.T) (*ClickHouseLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewClickHouseLedger(pkgch.NewFromDB(db), "signalgate", "decision_ledger", time.Second, nil), mock
}

func TestClickHouseLedgerAppendDenormalizesFilters(t *testing.T) {
	l, mock := newMockClickHouseLedger(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signalgate.decision_ledger (ticker, timeframe, quality, id")).
		WithArgs(
			"SPY", "5", "HIGH",
			sqlmock.AnyArg(), sqlmock.AnyArg(), "2.1.0", "APPROVE", "all gates passed",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := l.Append(context.Background(), sampleEntry("SPY", models.LedgerApprove, models.QualityHigh))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseLedgerAppendFailure(t *testing.T) {
	l, mock := newMockClickHouseLedger(t)
	mock.ExpectExec("INSERT INTO").WillReturnError(assert.AnError)

	_, err := l.Append(context.Background(), sampleEntry("SPY", models.LedgerApprove, models.QualityHigh))
	assert.ErrorIs(t, err, domrepo.ErrLedgerUnavailable)
}

func TestClickHouseLedgerQueryAndCount(t *testing.T) {
	l, mock := newMockClickHouseLedger(t)

	rows := sqlmock.NewRows([]string{
		"id", "created_at", "engine_version", "decision", "decision_reason", "signal", "phase_context",
		"decision_breakdown", "confluence_score", "execution", "exit", "regime", "hypothetical",
	}).AddRow(
		"8f9c4e0e-5a43-4a57-9a53-2f1f1bb1f0aa", int64(1_700_000_000_123), "2.1.0", "REJECT", "failed: phase",
		`{"ticker":"QQQ","signal":{"type":"SHORT","timeframe":"5","quality":"LOW"}}`,
		`{"phase":-40}`, `{"final_multiplier":0}`, "51.20", nil, nil, `{"volatility":"HIGH"}`, nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM signalgate.decision_ledger WHERE ticker = ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs("QQQ", 10).
		WillReturnRows(rows)

	got, err := l.Query(context.Background(), models.LedgerFilter{Ticker: "QQQ", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.LedgerReject, got[0].Decision)
	require.NotNil(t, got[0].PhaseContext)
	assert.Equal(t, -40.0, *got[0].PhaseContext.Phase)
	assert.Equal(t, "51.20", got[0].ConfluenceScore.StringFixed(2))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count() FROM signalgate.decision_ledger WHERE decision = ?")).
		WithArgs("REJECT").
		WillReturnRows(sqlmock.NewRows([]string{"count()"}).AddRow(int64(3)))

	n, err := l.Count(context.Background(), models.LedgerFilter{Decision: models.LedgerReject})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
