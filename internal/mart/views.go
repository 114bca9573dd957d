// Package mart defines the reporting layer on top of the warehouse tables:
// four aggregate views, rebuilt after every load, and the analytic reports
// printed at the end of a run.
package mart

import (
	"context"

	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// View names.
const (
	TopMovies           = "top_movies"
	AvgRatingByCountry  = "avg_rating_by_country"
	AvgRatingByAgeGroup = "avg_rating_by_age_group"
	BestGenre           = "best_genre"
)

// Names lists the views in definition order.
func Names() []string {
	return []string{TopMovies, AvgRatingByCountry, AvgRatingByAgeGroup, BestGenre}
}

// ageGroup buckets users.age. Ages below 20 (including the default 0) fall
// into "under 20".
const ageGroup = `CASE
    WHEN u.age < 20 THEN 'under 20'
    WHEN u.age BETWEEN 20 AND 29 THEN '20s'
    WHEN u.age BETWEEN 30 AND 39 THEN '30s'
    WHEN u.age BETWEEN 40 AND 49 THEN '40s'
    ELSE '50+'
  END`

func (d Dialect) bodies() map[string]string {
	avg := d.Avg("r.score") + " AS avg_score"
	count := "COUNT(r.id) AS total_ratings"
	return map[string]string{
		TopMovies: d.render(query{
			columns: []string{"m.title", "m.genre", avg, count},
			from:    "movies m\nJOIN ratings r ON m.id = r.movie_id",
			groupBy: []string{"m.title", "m.genre"},
			orderBy: "avg_score DESC, total_ratings DESC",
			limit:   10,
			view:    true,
		}),
		AvgRatingByCountry: d.render(query{
			columns: []string{"u.country", avg, count},
			from:    "ratings r\nJOIN users u ON u.id = r.user_id",
			groupBy: []string{"u.country"},
			orderBy: "avg_score DESC",
			view:    true,
		}),
		AvgRatingByAgeGroup: d.render(query{
			columns: []string{ageGroup + " AS age_group", avg, count},
			from:    "ratings r\nJOIN users u ON u.id = r.user_id",
			groupBy: []string{ageGroup},
			orderBy: "avg_score DESC",
			view:    true,
		}),
		BestGenre: d.render(query{
			columns: []string{"m.genre", avg, count},
			from:    "movies m\nJOIN ratings r ON m.id = r.movie_id",
			groupBy: []string{"m.genre"},
			orderBy: "avg_score DESC, total_ratings DESC",
			limit:   1,
			view:    true,
		}),
	}
}

// Statements returns every statement needed to (re)define the views.
func (d Dialect) Statements() []string {
	bodies := d.bodies()
	var out []string
	for _, name := range Names() {
		out = append(out, d.define(name, bodies[name])...)
	}
	return out
}

// Build (re)defines all views on repo in one transaction and returns their
// names.
func Build(ctx context.Context, repo storage.Repository) ([]string, error) {
	d, err := For(repo.Kind())
	if err != nil {
		return nil, err
	}
	if err := repo.ApplyViews(ctx, d.Statements()); err != nil {
		return nil, errors.Wrap(err, "build views")
	}
	return Names(), nil
}
