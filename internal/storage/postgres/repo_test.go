package postgres

import (
	"context"
	"strings"
	"testing"

	"evadoption/internal/frame"
	"evadoption/internal/storage"
)

func TestIdentQuoting(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ev_adoption", `"ev_adoption"`},
		{"public.ev_adoption", `"public"."ev_adoption"`},
		{`we"ird`, `"we""ird"`},
	}
	for _, c := range cases {
		if got := pgFQN(c.in); got != c.want {
			t.Fatalf("pgFQN(%q) = %s want %s", c.in, got, c.want)
		}
	}
	if got := tableIdentifier("public.t"); len(got) != 2 || got[0] != "public" || got[1] != "t" {
		t.Fatalf("tableIdentifier = %v", got)
	}
}

type execRecorder struct {
	storage.Repository
	sql []string
}

func (e *execRecorder) Exec(_ context.Context, sql string) error {
	e.sql = append(e.sql, sql)
	return nil
}

func TestEnsureTableRendersPostgresTypes(t *testing.T) {
	f, err := frame.FromRows([]string{"Region", "Year", "BEV Shares"}, [][]any{{"Norway", int64(2020), 54.3}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	var rec execRecorder
	if err := storage.EnsureTable(context.Background(), "postgres", &rec, "public.ev", f); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if len(rec.sql) != 1 {
		t.Fatalf("got %d statements want 1", len(rec.sql))
	}
	got := rec.sql[0]
	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "public"."ev"`,
		`"Region" TEXT`,
		`"Year" BIGINT`,
		`"BEV Shares" DOUBLE PRECISION`,
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFactoryUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var gotCfg Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}
	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "t", Columns: []string{"a"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if gotCfg.DSN != "postgres://x" || gotCfg.Table != "t" || len(gotCfg.Columns) != 1 {
		t.Fatalf("config not forwarded: %+v", gotCfg)
	}
	repo.Close()
	if !closed {
		t.Fatalf("Close did not call closeFn")
	}
}

func TestCopyFromEmptyIsNoop(t *testing.T) {
	r := &Repository{cfg: Config{Table: "t"}}
	n, err := r.CopyFrom(context.Background(), []string{"a"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("got (%d, %v) want (0, nil)", n, err)
	}
	if _, err := r.CopyFrom(context.Background(), nil, [][]any{{1}}); err == nil {
		t.Fatalf("want error for empty columns")
	}
}
