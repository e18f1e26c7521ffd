// Package engram provides the top-level client that wires the record
// store, the search and compression layers, the optional shaping
// collaborator, and the Lua hook engine behind one operation set shared
// by every front end.
package engram

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/engramkit/engram/pkg/compress"
	"github.com/engramkit/engram/pkg/config"
	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/mem"
	"github.com/engramkit/engram/pkg/mem/adapters/jsonfile"
	"github.com/engramkit/engram/pkg/scripting"
	"github.com/engramkit/engram/pkg/search"
	"github.com/engramkit/engram/pkg/shaping"
	shapingMock "github.com/engramkit/engram/pkg/shaping/adapters/mock"
	shapingOpenAI "github.com/engramkit/engram/pkg/shaping/adapters/openai"
)

// ErrAddRejected indicates the before_add Lua hook vetoed the memory.
var ErrAddRejected = errors.New("memory rejected by before_add hook")

// Client is the interface for the memory client facade.
type Client interface {
	// Add validates and persists a new memory
	Add(ctx context.Context, text string, tags []string) (mem.MemoryRecord, error)

	// Search ranks the collection against a query
	Search(ctx context.Context, query string, limit int) ([]search.Hit, error)

	// Compress renders the most relevant memories into a budgeted context block
	Compress(ctx context.Context, task string, budget, limit int) (compress.Result, error)

	// Delete tombstones a memory by id
	Delete(ctx context.Context, id string) (mem.DeleteResult, error)

	// Purge hard-deletes memories matching exactly one criterion
	Purge(ctx context.Context, criteria mem.PurgeCriteria, dryRun bool) (mem.PurgeResult, error)

	// Export returns the canonical serialized collection
	Export(ctx context.Context) ([]byte, error)

	// Stats aggregates collection counts and the active tag histogram
	Stats(ctx context.Context) (mem.Stats, error)

	// Close releases held resources
	Close() error
}

// Config contains configuration options for the Engram client.
type Config struct {
	// SearchLimit is the hit cap applied when a caller passes limit <= 0
	SearchLimit int

	// CompressionBudget is the character budget applied when a caller
	// passes budget <= 0
	CompressionBudget int

	// CompressionLimit caps how many hits compression considers when a
	// caller passes limit <= 0
	CompressionLimit int

	// EnableLuaHooks determines whether Lua hooks run during operations
	EnableLuaHooks bool
}

// DefaultConfig returns the default configuration for the client.
func DefaultConfig() Config {
	return Config{
		SearchLimit:       config.DefaultSearchLimit,
		CompressionBudget: config.DefaultCompressionBudget,
		CompressionLimit:  config.DefaultCompressionLimit,
		EnableLuaHooks:    false,
	}
}

// Engram is the implementation of the Client interface.
type Engram struct {
	// store is the record store
	store mem.Store

	// shaper is the optional remote shaping collaborator; nil keeps
	// compression fully deterministic
	shaper shaping.Shaper

	// scriptEngine is the Lua hook engine (optional)
	scriptEngine scripting.Engine

	// config contains configuration options
	config Config
}

// NewEngram creates a new Engram client with the specified components.
func NewEngram(
	store mem.Store,
	shaper shaping.Shaper,
	scriptEngine scripting.Engine,
	cfg Config,
) *Engram {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = config.DefaultSearchLimit
	}
	if cfg.CompressionBudget <= 0 {
		cfg.CompressionBudget = config.DefaultCompressionBudget
	}
	if cfg.CompressionLimit <= 0 {
		cfg.CompressionLimit = config.DefaultCompressionLimit
	}

	client := &Engram{
		store:        store,
		shaper:       shaper,
		scriptEngine: scriptEngine,
		config:       cfg,
	}

	log.Debug("Engram client initialized",
		"shaping_enabled", shaper != nil,
		"lua_hooks_enabled", cfg.EnableLuaHooks && scriptEngine != nil,
	)

	return client
}

// Add implements the Client interface.
func (e *Engram) Add(ctx context.Context, text string, tags []string) (mem.MemoryRecord, error) {
	log.DebugContext(ctx, "Adding memory", "text_length", len(text), "tags", tags)

	if e.config.EnableLuaHooks && e.scriptEngine != nil {
		hookText, hookTags, vetoed := callBeforeAddHook(ctx, e.scriptEngine, text, tags)
		if vetoed {
			log.DebugContext(ctx, "Memory vetoed by before_add hook")
			return mem.MemoryRecord{}, ErrAddRejected
		}
		text, tags = hookText, hookTags
	}

	record, err := e.store.Add(ctx, text, tags)
	if err != nil {
		log.ErrorContext(ctx, "Failed to add memory", "error", err)
		return mem.MemoryRecord{}, err
	}

	log.DebugContext(ctx, "Memory added", "id", record.ID, "keywords", record.Keywords)
	return record, nil
}

// Search implements the Client interface. A limit <= 0 falls back to
// the configured default.
func (e *Engram) Search(ctx context.Context, query string, limit int) ([]search.Hit, error) {
	if limit <= 0 {
		limit = e.config.SearchLimit
	}

	log.DebugContext(ctx, "Searching memories", "query", query, "limit", limit)

	records, err := e.store.Load(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load memories for search", "error", err)
		return nil, err
	}

	hits := search.Search(records, query, limit, time.Now().UTC())

	if e.config.EnableLuaHooks && e.scriptEngine != nil {
		callAfterSearchHook(ctx, e.scriptEngine, hits)
	}

	log.DebugContext(ctx, "Search complete", "hits", len(hits))
	return hits, nil
}

// Compress implements the Client interface. Budget and limit fall back
// to configured defaults when <= 0; the shaping collaborator is used
// when one is configured, with the deterministic rendering as fallback.
func (e *Engram) Compress(ctx context.Context, task string, budget, limit int) (compress.Result, error) {
	if budget <= 0 {
		budget = e.config.CompressionBudget
	}
	if limit <= 0 {
		limit = e.config.CompressionLimit
	}

	log.DebugContext(ctx, "Compressing memories", "task", task, "budget", budget, "limit", limit)

	records, err := e.store.Load(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load memories for compression", "error", err)
		return compress.Result{}, err
	}

	result := compress.WithShaping(ctx, e.shaper, records, task, budget, limit, time.Now().UTC())

	log.DebugContext(ctx, "Compression complete",
		"included_hits", len(result.IncludedHits),
		"chars_used", result.CharsUsed,
		"shaped", result.Shaped,
	)
	return result, nil
}

// Delete implements the Client interface.
func (e *Engram) Delete(ctx context.Context, id string) (mem.DeleteResult, error) {
	log.DebugContext(ctx, "Soft-deleting memory", "id", id)

	result, err := e.store.SoftDelete(ctx, id)
	if err != nil {
		log.ErrorContext(ctx, "Failed to soft-delete memory", "id", id, "error", err)
		return mem.DeleteResult{}, err
	}

	log.DebugContext(ctx, "Soft delete complete", "id", id, "found", result.Found)
	return result, nil
}

// Purge implements the Client interface.
func (e *Engram) Purge(ctx context.Context, criteria mem.PurgeCriteria, dryRun bool) (mem.PurgeResult, error) {
	log.DebugContext(ctx, "Purging memories", "dry_run", dryRun)

	result, err := e.store.Purge(ctx, criteria, dryRun)
	if err != nil {
		log.ErrorContext(ctx, "Failed to purge memories", "error", err)
		return mem.PurgeResult{}, err
	}

	log.DebugContext(ctx, "Purge complete", "count", result.Count, "dry_run", result.DryRun)
	return result, nil
}

// Export implements the Client interface.
func (e *Engram) Export(ctx context.Context) ([]byte, error) {
	return e.store.Export(ctx)
}

// Stats implements the Client interface.
func (e *Engram) Stats(ctx context.Context) (mem.Stats, error) {
	records, err := e.store.Load(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load memories for stats", "error", err)
		return mem.Stats{}, err
	}

	return mem.ComputeStats(records), nil
}

// StorePath returns the resolved store file location.
func (e *Engram) StorePath() string {
	return e.store.Path()
}

// Close implements the Client interface. The client must not be used
// after Close.
func (e *Engram) Close() error {
	if e.scriptEngine != nil {
		return e.scriptEngine.Close()
	}
	return nil
}

// NewFromConfig creates a new Engram client using the provided
// configuration. This is a convenience function that handles all
// component initialization.
func NewFromConfig(cfg *config.Config) (*Engram, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	store, err := initStore(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "initializing store")
	}

	shaper, err := initShaper(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "initializing shaper")
	}

	scriptEngine, err := initScriptEngine(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "initializing script engine")
	}

	clientConfig := Config{
		SearchLimit:       cfg.Search.Limit,
		CompressionBudget: cfg.Compression.Budget,
		CompressionLimit:  cfg.Compression.Limit,
		EnableLuaHooks:    scriptEngine != nil,
	}

	client := NewEngram(store, shaper, scriptEngine, clientConfig)

	log.Info("Engram client initialized from config",
		"store_path", store.Path(),
		"shaping_provider", cfg.Shaping.Provider,
		"lua_hooks_enabled", clientConfig.EnableLuaHooks,
	)

	return client, nil
}

// initStore initializes the JSON file store based on configuration.
func initStore(cfg *config.Config) (mem.Store, error) {
	opts := []jsonfile.Option{}
	if cfg.Store.LockPath != "" {
		opts = append(opts, jsonfile.WithLockPath(cfg.Store.LockPath))
	}
	if cfg.Store.LockTimeoutMs > 0 {
		opts = append(opts, jsonfile.WithLockTimeout(time.Duration(cfg.Store.LockTimeoutMs)*time.Millisecond))
	}

	store, err := jsonfile.New(cfg.Store.Path, opts...)
	if err != nil {
		return nil, err
	}

	log.Info("Using JSON file store", "path", store.Path())
	return store, nil
}

// initShaper initializes the shaping collaborator based on
// configuration. A nil shaper keeps compression fully deterministic.
func initShaper(cfg *config.Config) (shaping.Shaper, error) {
	provider := strings.ToLower(cfg.Shaping.Provider)

	switch provider {
	case "none", "":
		log.Debug("Shaping disabled, compression stays deterministic")
		return nil, nil

	case "openai":
		// Check if the API key is set
		apiKey := cfg.Shaping.OpenAI.APIKey
		if apiKey == "" {
			// Try to get it from environment
			apiKey = os.Getenv("OPENAI_API_KEY")
		}

		openaiCfg := shapingOpenAI.Config{
			APIKey:  apiKey,
			Model:   cfg.Shaping.OpenAI.Model,
			BaseURL: cfg.Shaping.OpenAI.BaseURL,
		}

		shaper, err := shapingOpenAI.NewOpenAIShaper(openaiCfg)
		if err != nil {
			return nil, err
		}

		log.Info("Using OpenAI shaper", "model", shaper.Model())
		return shaper, nil

	case "mock":
		log.Info("Using mock shaper")
		return shapingMock.NewMockShaper(), nil

	default:
		return nil, errors.Wrap(errors.ErrInvalidConfig, "unsupported shaping provider %q", provider)
	}
}

// initScriptEngine initializes the Lua scripting engine based on
// configuration. Returns nil when scripting is disabled or no script
// directory yields any scripts.
func initScriptEngine(cfg *config.Config) (scripting.Engine, error) {
	if !cfg.Scripting.Enabled {
		log.Debug("Lua scripting disabled")
		return nil, nil
	}

	scriptEngine, err := scripting.NewLuaEngine(scripting.DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "creating Lua engine")
	}

	// Try to load scripts from each path
	scriptFound := false
	for _, basePath := range cfg.Scripting.Paths {
		basePath, err := filepath.Abs(basePath)
		if err != nil {
			log.Warn("Failed to get absolute path", "path", basePath, "error", err)
			continue
		}

		if _, err := os.Stat(basePath); os.IsNotExist(err) {
			log.Debug("Scripts directory not found", "path", basePath)
			continue
		}

		if err := scriptEngine.LoadScriptDir(basePath); err != nil {
			log.Warn("Failed to load scripts", "path", basePath, "error", err)
			continue
		}

		log.Info("Loaded scripts", "path", basePath)
		scriptFound = true
	}

	if !scriptFound {
		log.Warn("No scripts were loaded from any path")
		scriptEngine.Close()
		return nil, nil
	}

	return scriptEngine, nil
}
