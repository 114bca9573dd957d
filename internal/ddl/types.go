package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (emitted verbatim)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, NVARCHAR(255))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'Unknown', 0)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name and an ordered list of columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TypeMap maps contract types to a dialect's column types.
type TypeMap map[string]string
