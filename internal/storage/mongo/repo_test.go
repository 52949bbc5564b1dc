package mongo

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"evadoption/internal/frame"
	"evadoption/internal/storage"
)

func TestSplitNamespace(t *testing.T) {
	cases := []struct {
		in       string
		db, coll string
		wantErr  bool
	}{
		{"evadoption.combined", "evadoption", "combined", false},
		{"evadoption.ev.2024", "evadoption", "ev.2024", false},
		{"combined", "", "", true},
		{".combined", "", "", true},
	}
	for _, c := range cases {
		db, coll, err := splitNamespace(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("splitNamespace(%q) err=%v wantErr=%v", c.in, err, c.wantErr)
		}
		if db != c.db || coll != c.coll {
			t.Fatalf("splitNamespace(%q) = %q,%q want %q,%q", c.in, db, coll, c.db, c.coll)
		}
	}
}

func TestToDocumentsKeepsOrderAndNulls(t *testing.T) {
	docs, err := toDocuments([]string{"Region", "EVs Sold"}, [][]any{{"Norway", 1.5}, {"Chile", nil}})
	if err != nil {
		t.Fatalf("toDocuments: %v", err)
	}
	d := docs[1].(bson.D)
	if d[0].Key != "Region" || d[1].Key != "EVs Sold" {
		t.Fatalf("unexpected key order: %v", d)
	}
	if d[1].Value != nil {
		t.Fatalf("got %v want nil", d[1].Value)
	}
	if _, err := toDocuments([]string{"a", "b"}, [][]any{{1}}); err == nil {
		t.Fatalf("want error for short row")
	}
}

func TestDDLIsNoop(t *testing.T) {
	f, err := frame.New("Region")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := storage.EnsureTable(context.Background(), "mongo", nil, "db.c", f); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
}

func TestFactoryRejectsBadNamespaceViaHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()
	called := false
	newRepository = func(ctx context.Context, cfg Config) (*Repository, func(), error) {
		called = true
		return orig(ctx, cfg)
	}
	if _, err := storage.New(context.Background(), storage.Config{Kind: "mongo", DSN: "mongodb://localhost:1", Table: "nodot"}); err == nil {
		t.Fatalf("want namespace error")
	}
	if !called {
		t.Fatalf("factory did not use newRepository hook")
	}
}
