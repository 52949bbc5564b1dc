package mysql

import (
	"evadoption/internal/ddl"
	"evadoption/internal/frame"
)

// sqlType maps a column kind to its column type. Empty columns become
// text.
func sqlType(k frame.Kind) string {
	switch k {
	case frame.KindInt:
		return "BIGINT"
	case frame.KindFloat:
		return "DOUBLE"
	default:
		return "TEXT"
	}
}

// BuildCreateTableSQL renders CREATE TABLE IF NOT EXISTS for td.
func BuildCreateTableSQL(td ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnList(td, myIdent)
	if err != nil {
		return "", err
	}
	return "CREATE TABLE IF NOT EXISTS " + myFQN(td.FQN) + " " + cols + " DEFAULT CHARSET=utf8mb4;", nil
}
