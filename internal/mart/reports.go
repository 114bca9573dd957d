package mart

import (
	"context"

	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// Report is one analytic query.
type Report struct {
	Title string
	SQL   string
}

// Table is an executed report.
type Table struct {
	Title  string
	Result storage.Result
}

// Reports returns the analytic queries run after the views are built.
// Queries over views repeat the ORDER BY because not every engine keeps a
// view's ordering.
func (d Dialect) Reports() []Report {
	return []Report{
		{
			Title: "Top 10 movies",
			SQL: d.render(query{
				columns: []string{"title", "genre", "avg_score", "total_ratings"},
				from:    TopMovies,
				orderBy: "avg_score DESC, total_ratings DESC",
			}),
		},
		{
			Title: "Best genre",
			SQL: d.render(query{
				columns: []string{"genre", "avg_score", "total_ratings"},
				from:    BestGenre,
			}),
		},
		{
			Title: "Country with most ratings",
			SQL: d.render(query{
				columns: []string{"u.country", "COUNT(r.id) AS total_reviews"},
				from:    "ratings r\nJOIN users u ON r.user_id = u.id",
				groupBy: []string{"u.country"},
				orderBy: "total_reviews DESC",
				limit:   1,
			}),
		},
		{
			Title: "Average by age group",
			SQL: d.render(query{
				columns: []string{"age_group", "avg_score", "total_ratings"},
				from:    AvgRatingByAgeGroup,
				orderBy: "avg_score DESC",
			}),
		},
	}
}

// RunReports executes every report against repo.
func RunReports(ctx context.Context, repo storage.Repository) ([]Table, error) {
	d, err := For(repo.Kind())
	if err != nil {
		return nil, err
	}
	reports := d.Reports()
	out := make([]Table, 0, len(reports))
	for _, r := range reports {
		res, err := repo.Query(ctx, r.SQL)
		if err != nil {
			return nil, errors.Wrapf(err, "report %q", r.Title)
		}
		out = append(out, Table{Title: r.Title, Result: res})
	}
	return out, nil
}
