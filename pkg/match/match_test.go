package match

import (
	"context"
	"testing"

	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
)

func newDirectory(t *testing.T, records ...directory.Record) *directory.Directory {
	t.Helper()
	d, err := directory.Open(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		if err := d.Upsert(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func rec(t *testing.T, first, last, number string, kind phone.Kind) directory.Record {
	t.Helper()
	n, err := phone.New(number, kind, phone.DefaultRegion)
	if err != nil {
		t.Fatal(err)
	}
	r, err := directory.NewRecord(first, last, n)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolveEmptyStore(t *testing.T) {
	e := New(newDirectory(t), "")
	if _, ok := e.Resolve(context.Background(), "+15551234567"); ok {
		t.Fatal("expected no match on an empty directory")
	}
}

func TestResolve(t *testing.T) {
	ana := rec(t, "Ana", "Lee", "(555) 123-4567", phone.KindCell)
	bo := rec(t, "Bo", "Kim", "555-000-1111", phone.KindWork)
	e := New(newDirectory(t, ana, bo), phone.DefaultRegion)

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"+15551234567", "Ana Lee", true},
		{"555 123 4567", "Ana Lee", true},
		{"1 (555) 000-1111", "Bo Kim", true},
		{"5550000000", "", false},
		{"", "", false},
		{"garbage", "", false},
	}
	for _, tt := range tests {
		got, ok := e.Resolve(context.Background(), tt.in)
		if ok != tt.wantOK {
			t.Errorf("Resolve(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			continue
		}
		if ok && got.FullName() != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.in, got.FullName(), tt.want)
		}
	}
}

func TestResolveFirstMatchWins(t *testing.T) {
	first := rec(t, "Ana", "Lee", "5551234567", phone.KindCell)
	second := rec(t, "Ann", "Lee", "+1 555 123 4567", phone.KindHome)
	e := New(newDirectory(t, first, second), "")

	got, ok := e.Resolve(context.Background(), "555-123-4567")
	if !ok || got.FullName() != "Ana Lee" {
		t.Fatalf("Resolve = %q, %v; want the first inserted record", got.FullName(), ok)
	}
}

func TestResolveCanceled(t *testing.T) {
	e := New(newDirectory(t, rec(t, "Ana", "Lee", "5551234567", phone.KindCell)), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := e.Resolve(ctx, "5551234567"); ok {
		t.Fatal("expected canceled resolve to report no match")
	}
}
