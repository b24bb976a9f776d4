package dialog

import (
	"math/rand"
	"time"

	"github.com/dialogforge/dialogengine/dialog/emit"
	"github.com/dialogforge/dialogengine/dialog/store"
)

// Option configures a Dialog at construction time (spec §2: "Clock /
// Logger / Rng: Injected providers"). Modeled on the teacher's
// functional-options pattern (Option func(*engineConfig) error), adapted
// to dialog construction, which cannot itself fail validation today but
// keeps the error return for forward compatibility with options that
// might.
type Option func(*dialogConfig) error

// dialogConfig collects every injected provider before New assembles a
// Dialog. Unset fields fall back to system defaults (wall clock, a
// seeded math/rand source, a null emitter, an in-memory store).
type dialogConfig struct {
	clock     Clock
	rng       *rand.Rand
	emitter   emit.Emitter
	renderer  *Renderer
	persisted store.Store
	resolver  ScriptResolver
	linter    *Linter
}

func defaultConfig() *dialogConfig {
	return &dialogConfig{
		clock:    SystemClock{},
		rng:      rand.New(rand.NewSource(1)),
		emitter:  emit.NewNullEmitter(),
		renderer: NewRenderer(),
		linter:   NewLinter(),
	}
}

// WithClock injects a Clock, overriding the system wall clock. Tests use
// this to control elapsed-time behavior deterministically.
func WithClock(c Clock) Option {
	return func(cfg *dialogConfig) error {
		cfg.clock = c
		return nil
	}
}

// WithRNG injects a deterministic random source for RandomBranch's
// weighted draw (spec §9: "Numeric randomness... inject it").
func WithRNG(r *rand.Rand) Option {
	return func(cfg *dialogConfig) error {
		cfg.rng = r
		return nil
	}
}

// WithEmitter injects the engine's logging/observability sink. Every
// Process tick and every node Evaluate call emit one event each; the
// interrupt pre-dispatch scan emits one only when an interrupt fires
// (spec §2, "Logger").
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *dialogConfig) error {
		cfg.emitter = e
		return nil
	}
}

// WithRenderer overrides the default minimal template renderer.
func WithRenderer(r *Renderer) Option {
	return func(cfg *dialogConfig) error {
		cfg.renderer = r
		return nil
	}
}

// WithStore injects the persistence provider for the transition log,
// metadata, and script snapshot (spec §6, "Persistence contract"). When
// unset, Dialogs run against an in-memory store scoped to the process.
func WithStore(s store.Store) Option {
	return func(cfg *dialogConfig) error {
		cfg.persisted = s
		return nil
	}
}

// WithScriptResolver injects the lookup used by EmbedDialog to resolve a
// sub-script by id at snapshot time (spec §4.3, "EmbedDialog").
func WithScriptResolver(r ScriptResolver) Option {
	return func(cfg *dialogConfig) error {
		cfg.resolver = r
		return nil
	}
}

// WithLinter overrides the default mandatory-checks-only Linter with one
// carrying additional host-registered checks (spec §4.5: "pluggable").
func WithLinter(l *Linter) Option {
	return func(cfg *dialogConfig) error {
		cfg.linter = l
		return nil
	}
}

// applyOptions folds opts onto a fresh default config.
func applyOptions(opts []Option) (*dialogConfig, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.persisted == nil {
		cfg.persisted = store.NewMemStore()
	}
	return cfg, nil
}

// defaultTickTimeout bounds HttpResponseBranch's synchronous call when a
// node doesn't configure its own timeout (spec §4.3: "a single
// synchronous HTTP call... with its configured timeout").
const defaultTickTimeout = 30 * time.Second
