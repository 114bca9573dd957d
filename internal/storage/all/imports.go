// Package all registers every built-in warehouse backend with the storage
// factory. Import it for side effects:
//
//	import _ "github.com/GabrielTheophilo/movieflix-cicd/internal/storage/all"
//
// after which storage.New accepts the kinds "postgres", "sqlite", "mysql" and
// "mssql". A binary that needs fewer backends can import the backend
// packages it wants instead.
package all

import (
	_ "github.com/GabrielTheophilo/movieflix-cicd/internal/storage/mssql"
	_ "github.com/GabrielTheophilo/movieflix-cicd/internal/storage/mysql"
	_ "github.com/GabrielTheophilo/movieflix-cicd/internal/storage/postgres"
	_ "github.com/GabrielTheophilo/movieflix-cicd/internal/storage/sqlite"
)
