// Package project resolves human-facing project references to the
// platform's internal space scoping.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hha-nguyen/huly-mcp-server/internal/store"
)

const (
	classProject = "tracker:class:Project"

	// defaultTaskKind is the platform-wide fallback when no sibling record
	// reveals the project's configured kind.
	defaultTaskKind = "tracker:taskTypes:Issue"
)

// Info is everything the write pipeline needs to scope records to a
// project: its ids, its identifier prefix, and its defaults.
type Info struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Identifier         string `json:"identifier"`
	WorkspaceID        string `json:"workspaceId"`
	DefaultTaskKind    string `json:"defaultTaskKind"`
	DefaultIssueStatus string `json:"defaultIssueStatus"`
}

// NotFoundError lists the projects that do exist so the caller can see what
// would have matched.
type NotFoundError struct {
	Ref       string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("project %q not found (workspace has no projects)", e.Ref)
	}
	return fmt.Sprintf("project %q not found; available: %s", e.Ref, strings.Join(e.Available, ", "))
}

// Realtime is the slice of the socket session the cache needs.
type Realtime interface {
	FindAll(ctx context.Context, class string, query, options map[string]any) ([]json.RawMessage, error)
}

// Sampler is the slice of the backing store the cache needs: one sibling
// row probe per table.
type Sampler interface {
	SampleDocInSpace(ctx context.Context, table store.Table, space string) (store.DocRow, error)
}

// Remote is an optional second cache tier shared across invocations.
type Remote interface {
	Get(ctx context.Context, ref string) (Info, bool)
	Set(ctx context.Context, ref string, info Info)
}

// Cache resolves and memoizes project lookups for the life of the process.
// Entries are never invalidated: projects are rarely renamed and a session
// is short-lived, so staleness is acceptable.
type Cache struct {
	rt      Realtime
	sampler Sampler
	remote  Remote

	mu      sync.Mutex
	entries map[string]Info
}

func NewCache(rt Realtime, sampler Sampler) *Cache {
	return &Cache{
		rt:      rt,
		sampler: sampler,
		entries: map[string]Info{},
	}
}

// WithRemote adds a shared cache tier consulted before the socket.
func (c *Cache) WithRemote(remote Remote) *Cache {
	c.remote = remote
	return c
}

// Resolve accepts a project name, id, or identifier and returns its scoping
// info, populating the cache on first use.
func (c *Cache) Resolve(ctx context.Context, ref string) (Info, error) {
	key := strings.TrimSpace(ref)

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	if c.remote != nil {
		if info, ok := c.remote.Get(ctx, key); ok {
			c.memoize(key, info)
			return info, nil
		}
	}

	info, err := c.lookup(ctx, key)
	if err != nil {
		return Info{}, err
	}

	c.memoize(key, info)
	if c.remote != nil {
		c.remote.Set(ctx, key, info)
	}
	return info, nil
}

func (c *Cache) memoize(key string, info Info) {
	c.mu.Lock()
	c.entries[key] = info
	c.mu.Unlock()
}

type projectDoc struct {
	ID                 string `json:"_id"`
	Name               string `json:"name"`
	Identifier         string `json:"identifier"`
	DefaultIssueStatus string `json:"defaultIssueStatus"`
	DefaultTaskKind    string `json:"type"`
}

func (c *Cache) lookup(ctx context.Context, ref string) (Info, error) {
	docs, err := c.rt.FindAll(ctx, classProject, nil, nil)
	if err != nil {
		return Info{}, fmt.Errorf("list projects: %w", err)
	}

	var names []string
	var match *projectDoc
	for _, raw := range docs {
		var doc projectDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		names = append(names, doc.Name)
		if match != nil {
			continue
		}
		if doc.Name == ref || doc.ID == ref || doc.Identifier == ref {
			matched := doc
			match = &matched
		}
	}
	if match == nil {
		sort.Strings(names)
		return Info{}, &NotFoundError{Ref: ref, Available: names}
	}

	info := Info{
		ID:                 match.ID,
		Name:               match.Name,
		Identifier:         match.Identifier,
		DefaultIssueStatus: match.DefaultIssueStatus,
		DefaultTaskKind:    defaultTaskKind,
	}
	c.augment(ctx, &info)
	return info, nil
}

// augment fills workspace id and task kind from one sibling record in the
// project's space: an issue if one exists, otherwise a document. Missing
// samples are fine; the pipeline has its own wider fallback probes.
func (c *Cache) augment(ctx context.Context, info *Info) {
	for _, table := range []store.Table{store.TableTask, store.TableDocument} {
		sample, err := c.sampler.SampleDocInSpace(ctx, table, info.ID)
		if err != nil {
			continue
		}
		info.WorkspaceID = sample.WorkspaceID
		if table == store.TableTask {
			var data struct {
				Kind string `json:"kind"`
			}
			if sample.DecodeData(&data) == nil && data.Kind != "" {
				info.DefaultTaskKind = data.Kind
			}
		}
		return
	}
}
