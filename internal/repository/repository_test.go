package repository

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.Nop()

func newTestPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return mock
}

func fixedClock(at time.Time) clock {
	return func() time.Time { return at }
}

func strPtr(s string) *string {
	return &s
}

func TestUnionQuery(t *testing.T) {
	a := psql.Select("x").From("t1").Where("a = ?", 1)
	b := psql.Select("x").From("t2").Where("b = ?", 2)

	t.Run("union renumbers placeholders", func(t *testing.T) {
		query, args, err := union(a, b).ToSql()
		require.NoError(t, err)
		assert.Equal(t, "(SELECT x FROM t1 WHERE a = $1) UNION (SELECT x FROM t2 WHERE b = $2)", query)
		assert.Equal(t, []any{1, 2}, args)
	})

	t.Run("union all", func(t *testing.T) {
		query, _, err := unionAll(a, b).ToSql()
		require.NoError(t, err)
		assert.Contains(t, query, ") UNION ALL (")
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := union().ToSql()
		assert.Error(t, err)
	})
}

func TestQualify(t *testing.T) {
	assert.Equal(t, []string{"t.a", "t.b"}, qualify("t", "a", "b"))
	assert.Empty(t, qualify("t"))
}
