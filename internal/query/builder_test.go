package query_test

import (
	"testing"

	"taskhub/internal/query"

	"github.com/stretchr/testify/require"
)

func TestBuildNoConditions(t *testing.T) {
	b := query.NewBuilder()
	sql, args := b.Build(`SELECT * FROM tasks`)

	require.Equal(t, `SELECT * FROM tasks`, sql)
	require.Empty(t, args)
}

func TestBuildNumbersPlaceholders(t *testing.T) {
	b := query.NewBuilder()
	b.Where("status = ?", "completed")
	b.Where("project_id = ?", 5)

	sql, args := b.Build(`SELECT * FROM tasks`)

	require.Equal(t, `SELECT * FROM tasks WHERE status = $1 AND project_id = $2`, sql)
	require.Equal(t, []interface{}{"completed", 5}, args)
}

func TestWhereIn(t *testing.T) {
	b := query.NewBuilder()
	b.WhereIn("assignee_id", 1, 2, 3)

	sql, args := b.Build(`SELECT * FROM tasks`)

	require.Equal(t, `SELECT * FROM tasks WHERE assignee_id IN ($1, $2, $3)`, sql)
	require.Len(t, args, 3)
}

func TestWhereInEmptyPanics(t *testing.T) {
	b := query.NewBuilder()
	require.Panics(t, func() {
		b.WhereIn("assignee_id")
	})
}

func TestWhereArgCountMismatchPanics(t *testing.T) {
	b := query.NewBuilder()
	require.Panics(t, func() {
		b.Where("status = ? AND priority = ?", "completed")
	})
}

func TestOrderBy(t *testing.T) {
	b := query.NewBuilder()
	b.Where("status = ?", "active")
	b.OrderBy("created_at", "desc")

	sql, _ := b.Build(`SELECT * FROM projects`)
	require.Equal(t, `SELECT * FROM projects WHERE status = $1 ORDER BY created_at DESC`, sql)
}

func TestOrderByRejectsBadIdent(t *testing.T) {
	b := query.NewBuilder()
	b.OrderBy("created_at; DROP TABLE users", "ASC")
	b.OrderBy("title", "bogus")

	sql, _ := b.Build(`SELECT * FROM projects`)
	require.Equal(t, `SELECT * FROM projects`, sql)
}

func TestWhereClauseForGroupBy(t *testing.T) {
	b := query.NewBuilder()
	b.Where("t.status = ?", "completed")
	b.WhereIn("t.assignee_id", 7, 8)

	where, args := b.WhereClause()
	sql := query.Number(`SELECT t.assignee_id, COUNT(*) FROM tasks t` + where + ` GROUP BY t.assignee_id`)

	require.Equal(t,
		`SELECT t.assignee_id, COUNT(*) FROM tasks t WHERE t.status = $1 AND t.assignee_id IN ($2, $3) GROUP BY t.assignee_id`,
		sql)
	require.Equal(t, []interface{}{"completed", 7, 8}, args)
}

func TestWhereClauseEmpty(t *testing.T) {
	where, args := query.NewBuilder().WhereClause()
	require.Empty(t, where)
	require.Nil(t, args)
}

func TestParseList(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, query.ParseList("a, b,c"))
	require.Equal(t, []string{"single"}, query.ParseList("single"))
	require.Empty(t, query.ParseList(""))
	require.Empty(t, query.ParseList(" , ,"))
}
