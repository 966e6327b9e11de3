// Command engined is the workflow automation engine's process entrypoint:
// it loads configuration, discovers modules and workflow documents, and
// serves the ad-hoc trigger and webform HTTP endpoints until signaled to
// stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/weaveflow/weaveflow/engine/approval"
	"github.com/weaveflow/weaveflow/engine/builtin"
	"github.com/weaveflow/weaveflow/engine/delegate"
	"github.com/weaveflow/weaveflow/engine/match"
	"github.com/weaveflow/weaveflow/engine/module"
	"github.com/weaveflow/weaveflow/engine/obs"
	"github.com/weaveflow/weaveflow/engine/runtime"
	"github.com/weaveflow/weaveflow/engine/workflow"
	"github.com/weaveflow/weaveflow/internal/httpapi"
	"github.com/weaveflow/weaveflow/internal/trigger"
	"github.com/weaveflow/weaveflow/pkg/config"
	"github.com/weaveflow/weaveflow/pkg/logger"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional .env file to load before reading the process environment")
	yamlFile := flag.String("config", "", "optional YAML file overlaying the merged defaults+environment configuration")
	flag.Parse()

	cfg, err := config.Load(config.Options{EnvFile: *envFile, YAMLFile: *yamlFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "engined: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(&logger.Config{
		Level:      logger.LogLevel(cfg.Logging.Level),
		Output:     os.Stdout,
		JSON:       cfg.Logging.JSON,
		TimeFormat: "15:04:05",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithLogger(ctx, log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("engined exited with an error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	registry := module.NewRegistry()
	if err := builtin.Register(registry); err != nil {
		return fmt.Errorf("engined: failed to register builtin modules: %w", err)
	}
	if err := discoverModules(registry, cfg.Registry.ModulesDir, log); err != nil {
		return err
	}

	approvalStore, err := buildApprovalStore(cfg.Approval)
	if err != nil {
		return err
	}
	approvals := approval.NewManager(approvalStore)

	metrics, err := buildMetrics(cfg.Metrics)
	if err != nil {
		return fmt.Errorf("engined: failed to build metrics: %w", err)
	}

	schema, err := workflow.DefaultSchema()
	if err != nil {
		return fmt.Errorf("engined: failed to compile the workflow document schema: %w", err)
	}

	interp := match.NewInterpolator(false)
	newEngine := func(doc *workflow.Document, payload map[string]any) (*runtime.Engine, error) {
		return runtime.New(doc, payload, runtime.Options{
			Registry:      registry,
			Approvals:     approvals,
			Logger:        log,
			Metrics:       metrics,
			Interpolator:  interp,
			Cloner:        delegate.NewGitCloner(),
			BranchChecker: delegate.NewGitHubBranchChecker(),
			ScratchRoot:   cfg.Delegate.ReposBasePath,
			EnvAllowlist:  cfg.Workflow.EnvAllowlist,
		})
	}

	scheduler := trigger.NewScheduler(func(ctx context.Context, doc *workflow.Document, payload map[string]any) (runtime.RunResult, error) {
		eng, err := newEngine(doc, payload)
		if err != nil {
			return runtime.RunResult{}, err
		}
		return eng.Run(ctx)
	}, log)
	if err := loadScheduledWorkflows(scheduler, schema, cfg.Workflow.DocumentsDir, log); err != nil {
		return err
	}
	scheduler.Start()

	sweepInterval, err := cfg.Approval.SweepIntervalDuration()
	if err != nil {
		return fmt.Errorf("engined: %w", err)
	}
	sweepStop := startApprovalSweep(ctx, approvals, sweepInterval, log)

	server, err := httpapi.New(httpapi.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Schema:     schema,
		Approvals:  approvals,
		NewEngine:  newEngine,
		RunTimeout: 15 * time.Minute,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("engined: failed to build the HTTP server: %w", err)
	}

	log.Info("engined starting", "addr", cfg.Server.Host, "port", cfg.Server.Port, "modules_dir", cfg.Registry.ModulesDir)
	serveErr := server.Start(ctx)

	<-sweepStop
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		log.Error("scheduler did not stop cleanly", "error", err)
	}
	if metrics != nil {
		_ = metrics.Shutdown(stopCtx)
	}
	return serveErr
}

func discoverModules(registry *module.Registry, modulesDir string, log logger.Logger) error {
	if _, err := os.Stat(modulesDir); err != nil {
		if os.IsNotExist(err) {
			log.Warn("modules_dir does not exist, starting with builtin modules only", "modules_dir", modulesDir)
			return nil
		}
		return fmt.Errorf("engined: failed to stat modules_dir %q: %w", modulesDir, err)
	}
	if err := registry.Discover(modulesDir); err != nil {
		return fmt.Errorf("engined: %w", err)
	}
	return nil
}

func buildApprovalStore(cfg config.Approval) (approval.Store, error) {
	if cfg.Store == "file" {
		store, err := approval.NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("engined: failed to open approval file store %q: %w", cfg.FilePath, err)
		}
		return store, nil
	}
	return approval.NewMemoryStore(), nil
}

func buildMetrics(cfg config.Metrics) (*obs.Metrics, error) {
	if !cfg.Enabled {
		return obs.NewDisabled(), nil
	}
	return obs.New()
}

// loadScheduledWorkflows walks documentsDir for *.yaml/*.yml files and
// registers every document whose trigger is `scheduled` with the cron
// scheduler. A missing directory is not an error: a deployment that only
// drives workflows through /api/adhoc or git triggers has nothing to load
// here.
func loadScheduledWorkflows(s *trigger.Scheduler, schema *workflow.Schema, documentsDir string, log logger.Logger) error {
	if _, err := os.Stat(documentsDir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("engined: failed to stat workflow documents_dir %q: %w", documentsDir, err)
	}

	return filepath.WalkDir(documentsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		doc, err := workflow.Load(path, schema)
		if err != nil {
			return fmt.Errorf("engined: failed to load workflow document %q: %w", path, err)
		}
		if doc.Trigger.Kind != workflow.TriggerScheduled {
			return nil
		}
		if err := s.Register(doc, nil); err != nil {
			return fmt.Errorf("engined: failed to register scheduled workflow %q: %w", path, err)
		}
		log.Info("loaded scheduled workflow", "path", path, "workflow", doc.Name)
		return nil
	})
}

// startApprovalSweep runs ExpireDue on a ticker until ctx is cancelled,
// returning a channel that closes once the sweep goroutine has exited.
func startApprovalSweep(
	ctx context.Context,
	approvals *approval.Manager,
	interval time.Duration,
	log logger.Logger,
) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				expired, err := approvals.ExpireDue(now)
				if err != nil {
					log.Error("approval sweep failed", "error", err)
					continue
				}
				if len(expired) > 0 {
					log.Info("expired approval tickets", "count", len(expired))
				}
			}
		}
	}()
	return done
}
