package mssql

import (
	"context"
	"strings"
	"testing"

	"evadoption/internal/frame"
	"evadoption/internal/storage"
)

type execRecorder struct {
	storage.Repository
	sql []string
}

func (e *execRecorder) Exec(_ context.Context, sql string) error {
	e.sql = append(e.sql, sql)
	return nil
}

func TestMsFQN(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ev", "[ev]"},
		{"dbo.ev", "[dbo].[ev]"},
		{"we]ird", "[we]]ird]"},
	}
	for _, c := range cases {
		if got := msFQN(c.in); got != c.want {
			t.Fatalf("msFQN(%q) = %s want %s", c.in, got, c.want)
		}
	}
}

func TestEnsureTableGuardsWithObjectID(t *testing.T) {
	f, err := frame.FromRows([]string{"Region", "Year", "EV Stocks"}, [][]any{{"Norway", int64(2020), 1.0}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	var rec execRecorder
	if err := storage.EnsureTable(context.Background(), "mssql", &rec, "dbo.ev", f); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	got := rec.sql[0]
	for _, want := range []string{
		"IF OBJECT_ID(N'[dbo].[ev]', N'U') IS NULL",
		"CREATE TABLE [dbo].[ev]",
		"[Region] NVARCHAR(MAX)",
		"[Year] BIGINT",
		"[EV Stocks] FLOAT",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	if _, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://%zz"}); err == nil {
		t.Fatalf("want DSN parse error")
	}
}
