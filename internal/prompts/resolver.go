package prompts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultTTL bounds how long a resolved prompt is served from memory.
const DefaultTTL = 5 * time.Minute

// Resolved is a prompt ready for use, with its effective output schema:
// the store's config when present, else the caller-supplied fallback.
type Resolved struct {
	Prompt string
	Schema *genai.Schema
}

type cacheEntry struct {
	prompt    string
	schema    *genai.Schema
	fetchedAt time.Time
}

// Expired reports whether a cache entry fetched at fetchedAt is stale at
// now, given the TTL. Kept as a standalone function so expiry is testable
// without a resolver.
func Expired(now, fetchedAt time.Time, ttl time.Duration) bool {
	return now.Sub(fetchedAt) >= ttl
}

// Resolver fetches named prompts from the store, caching each entry for
// the TTL. Entries are immutable; concurrent refreshes of the same name
// race only on which identical fetch wins the map slot.
type Resolver struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewResolver builds a resolver over the given store. A zero TTL gets
// DefaultTTL.
func NewResolver(store Store, ttl time.Duration, log zerolog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   log,
		cache: make(map[string]cacheEntry),
	}
}

// GetPromptWithConfig resolves a prompt by name (and optional version).
// The fallback schema is used only when the store has no config for the
// prompt; there is no fallback for the prompt text itself. A missing or
// misconfigured prompt is an error.
func (r *Resolver) GetPromptWithConfig(ctx context.Context, name string, fallback *genai.Schema, version string) (Resolved, error) {
	key := cacheKey(name, version)

	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()
	if ok && !Expired(r.now(), entry.fetchedAt, r.ttl) {
		return Resolved{Prompt: entry.prompt, Schema: entry.schema}, nil
	}

	if !r.store.Enabled() {
		return Resolved{}, fmt.Errorf("GetPromptWithConfig: prompt store disabled, cannot resolve %q", name)
	}

	stored, err := r.store.GetPrompt(ctx, name, version)
	if err != nil {
		return Resolved{}, fmt.Errorf("GetPromptWithConfig: fetch prompt %q: %w", name, err)
	}
	if stored == nil || stored.Text == "" {
		return Resolved{}, fmt.Errorf("GetPromptWithConfig: prompt %q not found or has no text", name)
	}

	schema := fallback
	if len(stored.Config) > 0 {
		parsed := &genai.Schema{}
		if err := json.Unmarshal(stored.Config, parsed); err != nil {
			return Resolved{}, fmt.Errorf("GetPromptWithConfig: prompt %q has invalid config: %w", name, err)
		}
		schema = parsed
	}

	r.mu.Lock()
	r.cache[key] = cacheEntry{prompt: stored.Text, schema: schema, fetchedAt: r.now()}
	r.mu.Unlock()

	r.log.Debug().Str("prompt", name).Str("version", version).Msg("prompt fetched from store")
	return Resolved{Prompt: stored.Text, Schema: schema}, nil
}

// Evict drops a cached prompt so the next resolve refetches it.
func (r *Resolver) Evict(name, version string) {
	r.mu.Lock()
	delete(r.cache, cacheKey(name, version))
	r.mu.Unlock()
}

func cacheKey(name, version string) string {
	if version == "" {
		return name
	}
	return name + "@" + version
}
