package mssql

import (
	"fmt"
	"strings"

	"evadoption/internal/ddl"
	"evadoption/internal/frame"
)

// sqlType maps a column kind to its column type. NVARCHAR(MAX) keeps
// region names in any script.
func sqlType(k frame.Kind) string {
	switch k {
	case frame.KindInt:
		return "BIGINT"
	case frame.KindFloat:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}

// BuildCreateTableSQL renders a guarded CREATE TABLE for td. SQL Server has
// no IF NOT EXISTS clause for tables, so the statement checks OBJECT_ID.
func BuildCreateTableSQL(td ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnList(td, msIdent)
	if err != nil {
		return "", err
	}
	lit := strings.ReplaceAll(msFQN(td.FQN), "'", "''")
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nCREATE TABLE %s %s;", lit, msFQN(td.FQN), cols), nil
}
