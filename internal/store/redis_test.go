package store

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), "redis://"+mr.Addr(), ttl)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, mr
}

func TestRedis_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestStore(t, 0)

	recs := []Record{
		{ID: "a", Owner: "p1", HumanSide: "white", StartFEN: "start-a", Moves: []string{"e2e4", "e7e5"}},
		{ID: "b", Owner: "p2", HumanSide: "black", StartFEN: "start-b", Moves: []string{}},
	}
	for _, rec := range recs {
		if err := r.Save(ctx, rec); err != nil {
			t.Fatalf("Save(%s): %v", rec.ID, err)
		}
	}
	recs[0].Moves = append(recs[0].Moves, "g1f3")
	if err := r.Save(ctx, recs[0]); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	sort.Slice(got, func(i, j int) bool { return got[i].ID < got[j].ID })
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Errorf("LoadAll mismatch (-want +got):\n%s", diff)
	}

	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll after delete: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("LoadAll after delete = %+v, want only b", got)
	}
}

func TestRedis_RecordsExpire(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestStore(t, time.Minute)
	if err := r.Save(ctx, Record{ID: "x", Moves: []string{}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ttl := mr.TTL(keyPrefix + "x"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	mr.FastForward(2 * time.Minute)
	got, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoadAll after expiry = %+v, want none", got)
	}
}

func TestRedis_SkipsUnreadableRecords(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestStore(t, 0)
	if err := r.Save(ctx, Record{ID: "ok", Moves: []string{}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mr.Set(keyPrefix+"bad", "{not json"); err != nil {
		t.Fatalf("miniredis Set: %v", err)
	}
	if err := mr.Set("other:key", "ignored"); err != nil {
		t.Fatalf("miniredis Set: %v", err)
	}

	got, err := r.LoadAll(ctx)
	if err == nil {
		t.Error("LoadAll returned no error for a corrupt record")
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("LoadAll = %+v, want only ok", got)
	}
}

func TestNewRedis_BadURL(t *testing.T) {
	if _, err := NewRedis(context.Background(), "not a url", 0); err == nil {
		t.Error("NewRedis accepted a malformed url")
	}
}
