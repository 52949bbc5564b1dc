package frame

import (
	"errors"
	"reflect"
	"testing"
)

// The two-table example: one shared key joins into a single row and a
// left-only row keeps nil cells for the right table's columns.
func TestJoinOuterSharedKeys(t *testing.T) {
	a := mustFrame(t, []string{"region", "year", "sales"},
		[]any{"US", int64(2020), int64(10)},
		[]any{"DE", int64(2020), int64(7)},
	)
	b := mustFrame(t, []string{"region", "year", "other", "stock"},
		[]any{"US", "2020", nil, int64(5)},
	)
	got, stats, err := JoinWithStats(a, b, JoinSpec{On: []string{"region", "year"}})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if want := []string{"region", "year", "sales", "other", "stock"}; !reflect.DeepEqual(got.Names(), want) {
		t.Fatalf("names=%v want %v", got.Names(), want)
	}
	want := [][]any{
		{"US", int64(2020), int64(10), nil, int64(5)},
		{"DE", int64(2020), int64(7), nil, nil},
	}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Fatalf("rows=%v want %v", got.Rows(), want)
	}
	if stats.Matched != 1 || stats.LeftOnly != 1 || stats.RightOnly != 0 || stats.Out != 2 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestJoinOuterKeyUnion(t *testing.T) {
	a := mustFrame(t, []string{"Entity", "Year", "a"},
		[]any{"US", int64(2020), int64(1)},
		[]any{"FR", int64(2021), int64(2)},
	)
	b := mustFrame(t, []string{"Entity", "Year", "b"},
		[]any{"US", int64(2020), int64(3)},
		[]any{"JP", int64(2019), int64(4)},
		[]any{"JP", int64(2020), int64(5)},
	)
	got, err := Join(a, b, JoinSpec{On: []string{"Entity", "Year"}, How: Outer})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	// union of (Entity, Year): US/2020, FR/2021, JP/2019, JP/2020
	if got.Len() != 4 {
		t.Fatalf("len=%d want 4", got.Len())
	}
	want := [][]any{
		{"US", int64(2020), int64(1), int64(3)},
		{"FR", int64(2021), int64(2), nil},
		{"JP", int64(2019), nil, int64(4)},
		{"JP", int64(2020), nil, int64(5)},
	}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Fatalf("rows=%v want %v", got.Rows(), want)
	}
}

func TestJoinMismatchedKeyNames(t *testing.T) {
	a := mustFrame(t, []string{"Entity", "Year", "x"},
		[]any{"US", int64(2020), int64(1)},
	)
	b := mustFrame(t, []string{"region", "year", "value"},
		[]any{"US", int64(2020), 9.5},
		[]any{"CN", int64(2020), 3.5},
	)
	spec := JoinSpec{LeftOn: []string{"Entity", "Year"}, RightOn: []string{"region", "year"}, CoalesceKeys: true}
	got, err := Join(a, b, spec)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if want := []string{"Entity", "Year", "x", "region", "year", "value"}; !reflect.DeepEqual(got.Names(), want) {
		t.Fatalf("names=%v want %v", got.Names(), want)
	}
	want := [][]any{
		{"US", int64(2020), int64(1), "US", int64(2020), 9.5},
		{"CN", int64(2020), nil, "CN", int64(2020), 3.5},
	}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Fatalf("rows=%v want %v", got.Rows(), want)
	}

	spec.CoalesceKeys = false
	got, _ = Join(a, b, spec)
	if got.Get(1, "Entity") != nil {
		t.Fatalf("without coalescing the left key of a right-only row stays nil, got %v", got.Get(1, "Entity"))
	}
}

func TestJoinSuffixesBothSides(t *testing.T) {
	a := mustFrame(t, []string{"Entity", "Electric cars sold"}, []any{"US", int64(1)})
	b := mustFrame(t, []string{"Entity", "Electric cars sold"}, []any{"US", int64(2)})
	got, err := Join(a, b, JoinSpec{On: []string{"Entity"}})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if want := []string{"Entity", "Electric cars sold_x", "Electric cars sold_y"}; !reflect.DeepEqual(got.Names(), want) {
		t.Fatalf("names=%v want %v", got.Names(), want)
	}
}

func TestJoinSuffixCollisionIsError(t *testing.T) {
	a := mustFrame(t, []string{"k", "v", "v_x"})
	b := mustFrame(t, []string{"k", "v"})
	if _, err := Join(a, b, JoinSpec{On: []string{"k"}}); !errors.Is(err, ErrDuplicateColumn) {
		t.Fatalf("err=%v want ErrDuplicateColumn", err)
	}
}

func TestJoinDuplicateKeysCartesian(t *testing.T) {
	a := mustFrame(t, []string{"k", "l"}, []any{"a", int64(1)}, []any{"a", int64(2)})
	b := mustFrame(t, []string{"k", "r"}, []any{"a", "x"}, []any{"a", "y"})
	got, stats, err := JoinWithStats(a, b, JoinSpec{On: []string{"k"}})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.Len() != 4 || stats.Matched != 4 {
		t.Fatalf("len=%d matched=%d want 4", got.Len(), stats.Matched)
	}
	want := [][]any{
		{"a", int64(1), "x"}, {"a", int64(1), "y"},
		{"a", int64(2), "x"}, {"a", int64(2), "y"},
	}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Fatalf("rows=%v", got.Rows())
	}
}

func TestJoinNilKeysMatchEachOther(t *testing.T) {
	// Aggregate regions such as Europe carry no code in every source.
	a := mustFrame(t, []string{"Entity", "Code", "Year", "A"},
		[]any{"Europe", nil, int64(2020), int64(10)},
		[]any{"Norway", "NOR", int64(2020), int64(1)},
	)
	b := mustFrame(t, []string{"Entity", "Code", "Year", "B"},
		[]any{"Europe", nil, "2020", int64(5)},
	)
	got, stats, err := JoinWithStats(a, b, JoinSpec{On: []string{"Entity", "Code", "Year"}})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	want := [][]any{
		{"Europe", nil, int64(2020), int64(10), int64(5)},
		{"Norway", "NOR", int64(2020), int64(1), nil},
	}
	if !reflect.DeepEqual(got.Rows(), want) {
		t.Fatalf("rows=%v want %v", got.Rows(), want)
	}
	if stats.Matched != 1 || stats.RightOnly != 0 {
		t.Fatalf("matched=%d right_only=%d want 1,0", stats.Matched, stats.RightOnly)
	}
}

func TestJoinNilKeyDoesNotMatchText(t *testing.T) {
	a := mustFrame(t, []string{"k", "l"}, []any{nil, int64(1)})
	b := mustFrame(t, []string{"k", "r"}, []any{"", int64(2)}, []any{"nil", int64(3)})
	got, stats, err := JoinWithStats(a, b, JoinSpec{On: []string{"k"}})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.Len() != 3 || stats.Matched != 0 {
		t.Fatalf("len=%d matched=%d want 3,0", got.Len(), stats.Matched)
	}
}

func TestJoinSkipNilKeys(t *testing.T) {
	a := mustFrame(t, []string{"k", "l"}, []any{nil, int64(1)})
	b := mustFrame(t, []string{"k", "r"}, []any{nil, int64(2)})
	got, stats, err := JoinWithStats(a, b, JoinSpec{On: []string{"k"}, SkipNilKeys: true})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if got.Len() != 2 || stats.Matched != 0 {
		t.Fatalf("len=%d matched=%d", got.Len(), stats.Matched)
	}
}

func TestJoinInnerAndLeft(t *testing.T) {
	a := mustFrame(t, []string{"k"}, []any{"a"}, []any{"b"})
	b := mustFrame(t, []string{"k", "v"}, []any{"b", int64(1)}, []any{"c", int64(2)})

	inner, err := Join(a, b, JoinSpec{On: []string{"k"}, How: Inner})
	if err != nil {
		t.Fatalf("inner: %v", err)
	}
	if !reflect.DeepEqual(inner.Rows(), [][]any{{"b", int64(1)}}) {
		t.Fatalf("inner rows=%v", inner.Rows())
	}
	left, err := Join(a, b, JoinSpec{On: []string{"k"}, How: Left})
	if err != nil {
		t.Fatalf("left: %v", err)
	}
	if !reflect.DeepEqual(left.Rows(), [][]any{{"a", nil}, {"b", int64(1)}}) {
		t.Fatalf("left rows=%v", left.Rows())
	}
}

func TestJoinKeyErrors(t *testing.T) {
	a := mustFrame(t, []string{"k"})
	b := mustFrame(t, []string{"k"})
	cases := []struct {
		name string
		spec JoinSpec
	}{
		{"no keys", JoinSpec{}},
		{"length mismatch", JoinSpec{LeftOn: []string{"k"}, RightOn: []string{"k", "k"}}},
		{"missing left", JoinSpec{On: []string{"zz"}}},
		{"missing right", JoinSpec{LeftOn: []string{"k"}, RightOn: []string{"zz"}}},
	}
	for _, c := range cases {
		if _, err := Join(a, b, c.spec); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
	if _, err := Join(a, b, JoinSpec{On: []string{"zz"}}); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("err=%v want ErrColumnNotFound", err)
	}
}

func TestParseHow(t *testing.T) {
	for in, want := range map[string]How{"": Outer, "OUTER": Outer, "inner": Inner, "left": Left} {
		got, err := ParseHow(in)
		if err != nil || got != want {
			t.Fatalf("ParseHow(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseHow("cross"); err == nil {
		t.Fatalf("expected error for cross")
	}
}
