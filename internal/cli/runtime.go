package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/cache"
	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/gateway"
	"github.com/agentgate/agentgate/internal/logger"
	"github.com/agentgate/agentgate/internal/pattern"
	"github.com/agentgate/agentgate/internal/provider"
)

// components is everything one hook invocation needs, built fresh from the
// current configuration and torn down when the invocation ends.
type components struct {
	cfg       *config.Config
	session   *config.Session
	engine    *pattern.Engine
	guard     *gateway.CommandGuard
	gate      *gateway.CodeQualityGate
	moderator *gateway.CompletionModerator
	log       *logger.Log

	store cache.Store
}

// buildComponents wires the gateway from configuration. Failures in optional
// subsystems (audit backend, cache, log) degrade instead of aborting: the
// deterministic paths keep working, and ambiguous edits fail closed.
func buildComponents() (*components, error) {
	cfg, err := config.Load(config.Overrides{
		RulesPath:      rulesPath,
		ExemptionsPath: exemptionsPath,
		LogPath:        logPath,
		CacheDir:       cacheDir,
		Provider:       providerName,
		Model:          modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	c := &components{cfg: cfg}

	c.session, err = config.LoadSession(filepath.Join(cfg.ConfigDir, "session.yaml"))
	if err != nil {
		warn("session config ignored: %v", err)
	}
	backend := cfg.Provider
	model := cfg.Model
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if c.session != nil {
		if c.session.Provider != "" {
			backend = c.session.Provider
		}
		if c.session.Model != "" {
			model = c.session.Model
		}
		if c.session.TimeoutSeconds > 0 {
			timeout = time.Duration(c.session.TimeoutSeconds) * time.Second
		}
	}

	rules, err := pattern.Load(cfg.RulesPath)
	if err != nil {
		// A broken rules file must not brick the agent; evaluation proceeds
		// with no rules, which allows everything deterministic.
		warn("rules load failed, continuing without rules: %v", err)
		rules = &pattern.RuleSet{}
	}

	extraExempt, err := config.LoadExemptions(cfg.ExemptionsPath)
	if err != nil {
		warn("exemptions load failed, ignoring: %v", err)
	}

	c.engine = pattern.NewEngine(rules, rules.Registry(extraExempt))
	c.guard = gateway.NewCommandGuard(c.engine)

	var auditor gateway.Auditor
	adapter, err := provider.New(backend)
	if err != nil {
		warn("audit backend unavailable: %v", err)
	} else {
		if model != "" && !adapter.IsValidModel(model) {
			// A bad model is reported now, not deferred to the external call.
			warn("audit backend unavailable: %v %s: %q", provider.ErrUnknownModel, adapter.Name(), model)
			adapter = nil
		}
	}
	if adapter != nil {
		c.store, err = cache.Open(cfg.CacheBackend, cfg.CacheDir)
		if err != nil {
			warn("audit cache unavailable, verdicts will not replay: %v", err)
			c.store = cache.NewMemoryStore()
		}
		pending, err := audit.NewPendingQueue(cfg.ConfigDir)
		if err != nil {
			warn("pending review queue unavailable: %v", err)
		}
		auditor = audit.NewEngine(c.store, adapter, audit.Options{
			Model:      model,
			Timeout:    timeout,
			MaxWorkers: cfg.MaxWorkers,
			Pending:    pending,
		})
	}
	c.gate = gateway.NewCodeQualityGate(c.engine, auditor)

	c.moderator = gateway.NewCompletionModerator(gateway.ModeratorConfig{
		Markers:    cfg.Completion.Markers,
		Prohibited: cfg.Completion.Prohibited,
		Window:     cfg.Completion.Window,
		Escalate:   cfg.Completion.Escalate,
	}, adapter, model, timeout)

	c.log, err = logger.Open(cfg.LogPath)
	if err != nil {
		warn("decision log unavailable: %v", err)
	}

	return c, nil
}

func (c *components) close() {
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.log != nil {
		_ = c.log.Close()
	}
}

// record writes a decision log event, best effort.
func (c *components) record(event logger.Event) {
	if c.log == nil {
		return
	}
	if err := c.log.Record(event); err != nil {
		warn("decision log write failed: %v", err)
	}
}

func warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[agentgate] warning: "+format+"\n", args...)
}
