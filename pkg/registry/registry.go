// Package registry maps provider ids to adapters and model catalog
// metadata. The registry is populated once at startup from registered
// adapters plus the embedded metadata files; reads go through an atomic
// snapshot so lookups never block writers.
package registry

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/digitallysavvy/go-llm/pkg/provider"
	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
	"github.com/digitallysavvy/go-llm/pkg/provider/types"
)

// Entry is one provider's registration: an adapter (nil for metadata-only
// providers) plus catalog metadata.
type Entry struct {
	Adapter  provider.Adapter
	Metadata *ProviderMetadata

	// Implemented is false for providers known only from a metadata
	// file.
	Implemented bool
}

// snapshot is the immutable registry state. Replacement is atomic;
// readers never observe partial updates.
type snapshot struct {
	entries map[string]*Entry
}

// Registry resolves provider ids to adapters and models.
type Registry struct {
	mu   sync.Mutex // serializes writers only
	snap atomic.Pointer[snapshot]
	log  *slog.Logger
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{log: slog.Default()}
	r.snap.Store(&snapshot{entries: map[string]*Entry{}})
	return r
}

// NewWithCatalog creates a registry pre-populated with the embedded model
// catalog (all providers metadata-only until adapters register).
func NewWithCatalog() *Registry {
	r := New()
	for id, meta := range loadEmbeddedCatalog(r.log) {
		r.registerMetadata(id, meta)
	}
	return r
}

// Register adds an adapter. Registering the same adapter twice is a
// no-op; a different adapter for an existing id is rejected and logged,
// never a crash.
func (r *Registry) Register(adapter provider.Adapter) error {
	id := adapter.ProviderID()
	if id == "" {
		return llmerrors.New(llmerrors.KindInvalidProvider, "adapter has empty provider id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.snap.Load()
	if existing, ok := current.entries[id]; ok && existing.Adapter != nil {
		if existing.Adapter == adapter {
			return nil
		}
		r.log.Warn("conflicting adapter registration rejected", "provider", id)
		return llmerrors.Newf(llmerrors.KindInvalidProvider,
			"provider %q already registered with a different adapter", id)
	}

	next := current.clone()
	entry := next.entries[id]
	if entry == nil {
		entry = &Entry{}
		next.entries[id] = entry
	}
	entry.Adapter = adapter
	entry.Implemented = true
	r.snap.Store(next)
	return nil
}

// registerMetadata records catalog metadata for a provider, preserving any
// adapter already registered under the id.
func (r *Registry) registerMetadata(id string, meta *ProviderMetadata) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snap.Load().clone()
	entry := next.entries[id]
	if entry == nil {
		entry = &Entry{}
		next.entries[id] = entry
	}
	entry.Metadata = meta
	r.snap.Store(next)
}

// Get returns the adapter for a provider id.
func (r *Registry) Get(id string) (provider.Adapter, error) {
	entry, ok := r.snap.Load().entries[id]
	if !ok {
		return nil, llmerrors.Newf(llmerrors.KindInvalidProvider, "provider %q not found", id)
	}
	if entry.Adapter == nil {
		return nil, llmerrors.Newf(llmerrors.KindInvalidProvider,
			"provider %q is metadata-only (no adapter registered)", id)
	}
	return entry.Adapter, nil
}

// GetModel resolves a model by provider id and model name, joining catalog
// metadata (limits, modalities, capabilities, cost) onto the result.
// Models absent from the catalog of a known provider still resolve with
// boundary defaults so unlisted model ids remain usable.
func (r *Registry) GetModel(id, name string) (types.Model, error) {
	entry, ok := r.snap.Load().entries[id]
	if !ok {
		return types.Model{}, llmerrors.Newf(llmerrors.KindInvalidProvider, "provider %q not found", id)
	}

	model := types.NewModel(id, name)
	if entry.Metadata == nil {
		return model, nil
	}
	if meta, ok := entry.Metadata.Model(name); ok {
		model.Limit = meta.Limit
		model.Modalities = meta.ModalitiesOrDefault()
		model.Capabilities = meta.CapabilitiesOrDefault()
		model.Cost = meta.Cost
	}
	return model, nil
}

// ResolveModel parses a "provider:model" spec and joins catalog metadata.
func (r *Registry) ResolveModel(spec string) (types.Model, error) {
	parsed, err := types.ParseModel(spec)
	if err != nil {
		return types.Model{}, llmerrors.Wrap(llmerrors.KindInvalidModelSpec, "parsing model spec", err)
	}
	model, err := r.GetModel(parsed.Provider, parsed.Model)
	if err != nil {
		return types.Model{}, err
	}
	model.Temperature = parsed.Temperature
	model.MaxTokens = parsed.MaxTokens
	model.MaxRetries = parsed.MaxRetries
	return model, nil
}

// ListProviders returns every known provider id.
func (r *Registry) ListProviders() []string {
	return r.list(func(*Entry) bool { return true })
}

// ListImplementedProviders returns ids with a registered adapter.
func (r *Registry) ListImplementedProviders() []string {
	return r.list(func(e *Entry) bool { return e.Implemented })
}

// ListMetadataOnlyProviders returns ids known only from catalog files.
func (r *Registry) ListMetadataOnlyProviders() []string {
	return r.list(func(e *Entry) bool { return !e.Implemented })
}

// EnvVarName returns the API-key environment variable for a provider.
// Precedence: the adapter's DefaultEnvKey, the catalog's provider.env[0],
// then the UPPER(ID)_API_KEY convention.
func (r *Registry) EnvVarName(id string) string {
	entry := r.snap.Load().entries[id]
	if entry != nil {
		if keyed, ok := entry.Adapter.(provider.EnvKeyProvider); ok {
			if key := keyed.DefaultEnvKey(); key != "" {
				return key
			}
		}
		if entry.Metadata != nil && len(entry.Metadata.Provider.Env) > 0 {
			return entry.Metadata.Provider.Env[0]
		}
	}
	return strings.ToUpper(strings.ReplaceAll(id, "-", "_")) + "_API_KEY"
}

func (r *Registry) list(keep func(*Entry) bool) []string {
	entries := r.snap.Load().entries
	ids := make([]string, 0, len(entries))
	for id, entry := range entries {
		if keep(entry) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *snapshot) clone() *snapshot {
	next := &snapshot{entries: make(map[string]*Entry, len(s.entries))}
	for id, entry := range s.entries {
		copied := *entry
		next.entries[id] = &copied
	}
	return next
}

// Default is the process-wide registry, initialized with the embedded
// catalog. Adapters register themselves here at startup.
var Default = NewWithCatalog()

// Register adds an adapter to the default registry.
func Register(adapter provider.Adapter) error { return Default.Register(adapter) }

// Get returns an adapter from the default registry.
func Get(id string) (provider.Adapter, error) { return Default.Get(id) }

// ResolveModel resolves a model spec against the default registry.
func ResolveModel(spec string) (types.Model, error) { return Default.ResolveModel(spec) }

// EnvVarName returns the API-key env var name per the default registry.
func EnvVarName(id string) string { return Default.EnvVarName(id) }
