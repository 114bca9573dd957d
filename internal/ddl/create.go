// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// The package stays generic: identifiers are not quoted and defaults are raw
// SQL. Storage backends choose the column types (TypeMap) and the existence
// guard for their dialect.
package ddl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
)

// Guard selects how a CREATE TABLE statement avoids failing on an existing
// table.
type Guard int

const (
	// IfNotExists renders CREATE TABLE IF NOT EXISTS (postgres, sqlite, mysql).
	IfNotExists Guard = iota
	// ObjectIDGuard wraps the statement in IF OBJECT_ID(...) IS NULL (SQL Server).
	ObjectIDGuard
)

// FromContract builds the table definition for an entity. The contract key
// becomes the primary key, required fields are NOT NULL and defaults are
// rendered as SQL literals. No foreign keys are declared.
func FromContract(table string, c schema.Contract, types TypeMap) (TableDef, error) {
	t := TableDef{FQN: table, Columns: make([]ColumnDef, 0, len(c.Fields))}
	for _, f := range c.Fields {
		typ, ok := types[string(f.Type)]
		if !ok {
			return TableDef{}, errors.Errorf("ddl: no SQL type for %s.%s (%s)", table, f.Name, f.Type)
		}
		col := ColumnDef{
			Name:       f.Name,
			SQLType:    typ,
			Nullable:   !f.Required && f.Name != c.Key,
			PrimaryKey: f.Name == c.Key,
		}
		if f.Default != nil {
			lit, err := literal(f.Default)
			if err != nil {
				return TableDef{}, errors.Wrapf(err, "ddl: default for %s.%s", table, f.Name)
			}
			col.Default = lit
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

func literal(v any) (string, error) {
	switch t := v.(type) {
	case int64:
		return strconv.FormatInt(t, 10), nil
	case int:
		return strconv.Itoa(t), nil
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", nil
	default:
		return "", errors.Errorf("unsupported literal %T", v)
	}
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Each column is rendered as
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// and primary key columns are collected into a trailing PRIMARY KEY clause.
func BuildCreateTableSQL(t TableDef, guard Guard) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", errors.New("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", errors.New("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", errors.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", errors.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, name)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := strings.Join(cols, ",\n  ")
	switch guard {
	case IfNotExists:
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", fqn, body), nil
	case ObjectIDGuard:
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s (\n  %s\n);", fqn, fqn, body), nil
	default:
		return "", errors.Errorf("ddl: unknown guard %d", guard)
	}
}

// ContractTables renders guarded CREATE TABLE statements for entities, in
// the order given.
func ContractTables(entities []schema.Entity, types TypeMap, guard Guard) ([]string, error) {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		def, err := FromContract(e.Table, e.Contract, types)
		if err != nil {
			return nil, err
		}
		stmt, err := BuildCreateTableSQL(def, guard)
		if err != nil {
			return nil, errors.Wrapf(err, "table %s", e.Table)
		}
		out = append(out, stmt)
	}
	return out, nil
}
