package schema

// Entity binds a contract to its data lake file and warehouse table.
type Entity struct {
	Contract Contract
	File     string // file name inside the data lake directory
	Table    string // destination table
}

// Name is the contract name, used in logs and metrics labels.
func (e Entity) Name() string { return e.Contract.Name }

func bound(v int64) *int64 { return &v }

// Movies is the movie catalogue (filmes.csv).
var Movies = Entity{
	File:  "filmes.csv",
	Table: "movies",
	Contract: Contract{
		Name: "movies",
		Key:  "id",
		Fields: []Field{
			{Name: "id", Type: TypeInt, Required: true},
			{Name: "title", Type: TypeText, Required: true},
			{Name: "genre", Type: TypeText, Default: "Unknown"},
			{Name: "year", Type: TypeInt, Default: int64(0)},
		},
	},
}

// Users is the user registry (users.csv).
var Users = Entity{
	File:  "users.csv",
	Table: "users",
	Contract: Contract{
		Name: "users",
		Key:  "id",
		Fields: []Field{
			{Name: "id", Type: TypeInt, Required: true},
			{Name: "name", Type: TypeText, Required: true},
			{Name: "age", Type: TypeInt, Default: int64(0)},
			{Name: "country", Type: TypeText, Default: "Unknown"},
		},
	},
}

// Ratings holds user scores for movies (ratings.csv).
var Ratings = Entity{
	File:  "ratings.csv",
	Table: "ratings",
	Contract: Contract{
		Name: "ratings",
		Key:  "id",
		Fields: []Field{
			{Name: "id", Type: TypeInt, Required: true},
			{Name: "user_id", Type: TypeInt, Required: true},
			{Name: "movie_id", Type: TypeInt, Required: true},
			{Name: "score", Type: TypeInt, Required: true, Min: bound(1), Max: bound(5)},
		},
		References: []Reference{
			{Field: "user_id", Entity: "users"},
			{Field: "movie_id", Entity: "movies"},
		},
	},
}

// LoadOrder lists the entities in the order they must land: ratings refer to
// both movies and users.
func LoadOrder() []Entity { return []Entity{Movies, Users, Ratings} }

// Tables returns the destination tables, dependents first, as expected by a
// cascading reset.
func Tables() []string { return []string{Ratings.Table, Movies.Table, Users.Table} }
