package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var completionCols = []string{"id", "user_id", "habit_id", "completed_at"}

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "habit_completions", completionCols, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"habit_completions"}, completionCols).WillReturnResult(2)

	rows := [][]any{{"c1", "u1", "h1", "2024-07-01"}, {"c2", "u1", "h1", "2024-07-02"}}
	n, err := CopyFrom(context.Background(), mock, "habit_completions", completionCols, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_SchemaQualified(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"vitals", "habit_completions"}, completionCols).WillReturnResult(1)

	n, err := CopyFrom(context.Background(), mock, "vitals.habit_completions", completionCols, [][]any{{"c1", "u1", "h1", "2024-07-01"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"habit_completions"}, completionCols).WillReturnError(fmt.Errorf("copy failed"))

	_, err = CopyFrom(context.Background(), mock, "habit_completions", completionCols, [][]any{{"c1", "u1", "h1", "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO habit_completions")
	assert.NoError(t, mock.ExpectationsWereMet())
}
