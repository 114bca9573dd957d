package mart

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage/sqldb"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage/sqlite"
)

func TestForUnknownKind(t *testing.T) {
	_, err := For("oracle")
	require.Error(t, err)
}

func TestPostgresStatements(t *testing.T) {
	d, err := For("postgres")
	require.NoError(t, err)

	stmts := d.Statements()
	require.Len(t, stmts, 4)
	assert.Equal(t, `CREATE OR REPLACE VIEW top_movies AS
SELECT m.title, m.genre, ROUND(AVG(r.score)::numeric, 2) AS avg_score, COUNT(r.id) AS total_ratings
FROM movies m
JOIN ratings r ON m.id = r.movie_id
GROUP BY m.title, m.genre
ORDER BY avg_score DESC, total_ratings DESC
LIMIT 10`, stmts[0])
	assert.True(t, strings.HasSuffix(stmts[3], "LIMIT 1"))
	assert.True(t, strings.HasPrefix(stmts[3], "CREATE OR REPLACE VIEW best_genre AS"))
}

func TestSQLiteDropsBeforeCreate(t *testing.T) {
	d, err := For("sqlite")
	require.NoError(t, err)

	stmts := d.Statements()
	require.Len(t, stmts, 8)
	assert.Equal(t, "DROP VIEW IF EXISTS top_movies", stmts[0])
	assert.True(t, strings.HasPrefix(stmts[1], "CREATE VIEW top_movies AS"))
	assert.Contains(t, stmts[1], "ROUND(AVG(r.score), 2)")
}

func TestMSSQLUsesTopAndOffset(t *testing.T) {
	d, err := For("mssql")
	require.NoError(t, err)

	stmts := d.Statements()
	require.Len(t, stmts, 4)
	assert.True(t, strings.HasPrefix(stmts[0], "CREATE OR ALTER VIEW top_movies AS\nSELECT TOP 10 "))
	assert.NotContains(t, stmts[0], "LIMIT")
	assert.True(t, strings.HasSuffix(stmts[1], "ORDER BY avg_score DESC\nOFFSET 0 ROWS"))
	assert.Contains(t, stmts[2], "GROUP BY CASE")
	assert.Contains(t, stmts[3], "SELECT TOP 1 ")

	for _, r := range d.Reports() {
		assert.NotContains(t, r.SQL, "OFFSET", r.Title)
		assert.NotContains(t, r.SQL, "LIMIT", r.Title)
	}
}

func TestReportsTitles(t *testing.T) {
	d, err := For("mysql")
	require.NoError(t, err)

	var titles []string
	for _, r := range d.Reports() {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Top 10 movies", "Best genre", "Country with most ratings", "Average by age group"}, titles)
}

func newWarehouse(t *testing.T) *sqldb.Repository {
	t.Helper()
	r, err := sqlite.NewRepository(context.Background(), storage.Config{Database: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	require.NoError(t, r.EnsureSchema(context.Background(), schema.LoadOrder()))
	return r
}

func load(t *testing.T, r storage.Repository, table string, cols []string, rows [][]any) {
	t.Helper()
	_, err := r.Load(context.Background(), table, cols, rows)
	require.NoError(t, err)
}

func seed(t *testing.T, r storage.Repository, withRatings bool) {
	load(t, r, "movies", []string{"id", "title", "genre", "year"}, [][]any{
		{int64(1), "A", "Drama", int64(2001)},
		{int64(2), "B", "Comedy", int64(1999)},
		{int64(3), "C", "Drama", int64(2010)},
	})
	load(t, r, "users", []string{"id", "name", "age", "country"}, [][]any{
		{int64(1), "Ana", int64(15), "BR"},
		{int64(2), "Bo", int64(25), "PT"},
		{int64(3), "Cy", int64(55), "BR"},
	})
	if withRatings {
		load(t, r, "ratings", []string{"id", "user_id", "movie_id", "score"}, [][]any{
			{int64(1), int64(1), int64(1), int64(5)},
			{int64(2), int64(2), int64(1), int64(4)},
			{int64(3), int64(3), int64(2), int64(2)},
			{int64(4), int64(1), int64(3), int64(4)},
		})
	}
}

func queryRows(t *testing.T, r storage.Repository, sql string) [][]any {
	t.Helper()
	res, err := r.Query(context.Background(), sql)
	require.NoError(t, err)
	return res.Rows
}

func TestViewsOnSQLite(t *testing.T) {
	r := newWarehouse(t)
	seed(t, r, true)

	names, err := Build(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, Names(), names)

	assert.Equal(t, [][]any{
		{"A", "Drama", 4.5, int64(2)},
		{"C", "Drama", 4.0, int64(1)},
		{"B", "Comedy", 2.0, int64(1)},
	}, queryRows(t, r, "SELECT * FROM top_movies"))

	assert.Equal(t, [][]any{{"Drama", 4.33, int64(3)}}, queryRows(t, r, "SELECT * FROM best_genre"))

	assert.Equal(t, [][]any{
		{"PT", 4.0, int64(1)},
		{"BR", 3.67, int64(3)},
	}, queryRows(t, r, "SELECT * FROM avg_rating_by_country"))

	assert.Equal(t, [][]any{
		{"under 20", 4.5, int64(2)},
		{"20s", 4.0, int64(1)},
		{"50+", 2.0, int64(1)},
	}, queryRows(t, r, "SELECT * FROM avg_rating_by_age_group"))
}

func TestBestGenreEmptyWithoutRatings(t *testing.T) {
	r := newWarehouse(t)
	seed(t, r, false)

	_, err := Build(context.Background(), r)
	require.NoError(t, err)
	assert.Empty(t, queryRows(t, r, "SELECT * FROM best_genre"))
}

func TestBestGenreTieGoesToMostRated(t *testing.T) {
	r := newWarehouse(t)
	load(t, r, "movies", []string{"id", "title", "genre", "year"}, [][]any{
		{int64(1), "A", "Comedy", int64(2001)},
		{int64(2), "B", "Drama", int64(1999)},
	})
	// Both genres round to 4.33: Comedy 13/3, Drama 26/6.
	var rows [][]any
	for i, sc := range []int64{5, 4, 4} {
		rows = append(rows, []any{int64(i + 1), int64(1), int64(1), sc})
	}
	for i, sc := range []int64{5, 5, 4, 4, 4, 4} {
		rows = append(rows, []any{int64(i + 10), int64(1), int64(2), sc})
	}
	load(t, r, "ratings", []string{"id", "user_id", "movie_id", "score"}, rows)

	_, err := Build(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"Drama", 4.33, int64(6)}}, queryRows(t, r, "SELECT * FROM best_genre"))
}

func TestBuildTwiceReplacesViews(t *testing.T) {
	r := newWarehouse(t)
	seed(t, r, true)

	_, err := Build(context.Background(), r)
	require.NoError(t, err)
	_, err = Build(context.Background(), r)
	require.NoError(t, err)

	assert.Len(t, queryRows(t, r, "SELECT name FROM sqlite_master WHERE type = 'view'"), 4)
}

func TestRunReportsOnSQLite(t *testing.T) {
	r := newWarehouse(t)
	seed(t, r, true)
	_, err := Build(context.Background(), r)
	require.NoError(t, err)

	tables, err := RunReports(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, tables, 4)

	country := tables[2]
	assert.Equal(t, "Country with most ratings", country.Title)
	assert.Equal(t, []string{"country", "total_reviews"}, country.Result.Columns)
	assert.Equal(t, [][]any{{"BR", int64(3)}}, country.Result.Rows)

	assert.Len(t, tables[0].Result.Rows, 3)
	assert.Equal(t, []string{"age_group", "avg_score", "total_ratings"}, tables[3].Result.Columns)
}
