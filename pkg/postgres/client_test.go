package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresDSN(t *testing.T) {
	_, err := NewClient()
	assert.EqualError(t, err, "dsn is required")
}

func TestInitSchemaRunsStatementsInOrder(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	c := NewFromDB(sqlx.NewDb(mockDB, "postgres"))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS b").WillReturnResult(sqlmock.NewResult(0, 0))

	err = c.InitSchema(context.Background(), []string{
		"CREATE TABLE IF NOT EXISTS a (id INT)",
		"CREATE INDEX IF NOT EXISTS b ON a (id)",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
