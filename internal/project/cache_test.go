package project

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hha-nguyen/huly-mcp-server/internal/store"
)

type fakeRealtime struct {
	calls int
	docs  []map[string]any
	err   error
}

func (f *fakeRealtime) FindAll(ctx context.Context, class string, query, options map[string]any) ([]json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []json.RawMessage
	for _, doc := range f.docs {
		raw, _ := json.Marshal(doc)
		out = append(out, raw)
	}
	return out, nil
}

type fakeSampler struct {
	rows map[store.Table]store.DocRow
}

func (f *fakeSampler) SampleDocInSpace(ctx context.Context, table store.Table, space string) (store.DocRow, error) {
	row, ok := f.rows[table]
	if !ok {
		return store.DocRow{}, store.ErrNoRow
	}
	return row, nil
}

func projects() []map[string]any {
	return []map[string]any{
		{"_id": "proj-1", "name": "Rocket", "identifier": "RKT", "defaultIssueStatus": "status-backlog"},
		{"_id": "proj-2", "name": "Lander", "identifier": "LND", "defaultIssueStatus": "status-todo"},
	}
}

func TestResolveMatchesNameIDIdentifier(t *testing.T) {
	for _, ref := range []string{"Rocket", "proj-1", "RKT"} {
		t.Run(ref, func(t *testing.T) {
			cache := NewCache(&fakeRealtime{docs: projects()}, &fakeSampler{})
			info, err := cache.Resolve(context.Background(), ref)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", ref, err)
			}
			if info.ID != "proj-1" || info.Identifier != "RKT" {
				t.Errorf("info = %+v", info)
			}
			if info.DefaultIssueStatus != "status-backlog" {
				t.Errorf("default status = %q", info.DefaultIssueStatus)
			}
		})
	}
}

func TestResolveAugmentsFromSiblingIssue(t *testing.T) {
	sampler := &fakeSampler{rows: map[store.Table]store.DocRow{
		store.TableTask: {
			WorkspaceID: "ws-uuid",
			Data:        json.RawMessage(`{"kind":"tracker:taskTypes:Bug"}`),
		},
	}}
	cache := NewCache(&fakeRealtime{docs: projects()}, sampler)
	info, err := cache.Resolve(context.Background(), "Rocket")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.WorkspaceID != "ws-uuid" {
		t.Errorf("workspace = %q", info.WorkspaceID)
	}
	if info.DefaultTaskKind != "tracker:taskTypes:Bug" {
		t.Errorf("kind = %q", info.DefaultTaskKind)
	}
}

func TestResolveFallsBackToDocumentSampleAndDefaultKind(t *testing.T) {
	sampler := &fakeSampler{rows: map[store.Table]store.DocRow{
		store.TableDocument: {WorkspaceID: "ws-from-doc"},
	}}
	cache := NewCache(&fakeRealtime{docs: projects()}, sampler)
	info, err := cache.Resolve(context.Background(), "Lander")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if info.WorkspaceID != "ws-from-doc" {
		t.Errorf("workspace = %q", info.WorkspaceID)
	}
	if info.DefaultTaskKind != defaultTaskKind {
		t.Errorf("kind = %q, want platform default", info.DefaultTaskKind)
	}
}

func TestResolveNotFoundListsAvailable(t *testing.T) {
	cache := NewCache(&fakeRealtime{docs: projects()}, &fakeSampler{})
	_, err := cache.Resolve(context.Background(), "Ghost")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	msg := notFound.Error()
	if !strings.Contains(msg, "Lander") || !strings.Contains(msg, "Rocket") {
		t.Errorf("available projects missing from %q", msg)
	}
}

func TestResolveCachesPerProcess(t *testing.T) {
	rt := &fakeRealtime{docs: projects()}
	cache := NewCache(rt, &fakeSampler{})
	ctx := context.Background()
	if _, err := cache.Resolve(ctx, "Rocket"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := cache.Resolve(ctx, "Rocket"); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if rt.calls != 1 {
		t.Errorf("socket round-trips = %d, want 1", rt.calls)
	}
}

func TestRedisTierSkipsSocket(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	remote := NewRedisCacheWithClient(client, time.Minute)
	ctx := context.Background()

	first := NewCache(&fakeRealtime{docs: projects()}, &fakeSampler{}).WithRemote(remote)
	if _, err := first.Resolve(ctx, "Rocket"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	// A fresh process-level cache with a dead socket still resolves from
	// the shared tier.
	rt := &fakeRealtime{err: errors.New("socket down")}
	second := NewCache(rt, &fakeSampler{}).WithRemote(remote)
	info, err := second.Resolve(ctx, "Rocket")
	if err != nil {
		t.Fatalf("resolve via redis tier: %v", err)
	}
	if info.Identifier != "RKT" {
		t.Errorf("info = %+v", info)
	}
	if rt.calls != 0 {
		t.Errorf("socket used despite redis hit")
	}
}

func TestRedisTierExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	remote := NewRedisCacheWithClient(client, time.Second)
	ctx := context.Background()

	remote.Set(ctx, "Rocket", Info{ID: "proj-1", Identifier: "RKT"})
	if _, ok := remote.Get(ctx, "Rocket"); !ok {
		t.Fatal("expected hit before expiry")
	}
	mr.FastForward(2 * time.Second)
	if _, ok := remote.Get(ctx, "Rocket"); ok {
		t.Error("expected miss after expiry")
	}
}
