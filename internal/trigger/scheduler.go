// Package trigger turns a Workflow Document's `trigger` tag into a running
// thing: a cron entry for `scheduled`, a parsed request for `ad-hoc`. It
// never runs a workflow itself — it calls back into a RunFunc the caller
// (cmd/engined) supplies, so this package never needs to know about
// engine/runtime's Options wiring.
package trigger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/weaveflow/weaveflow/engine/runtime"
	"github.com/weaveflow/weaveflow/engine/workflow"
	"github.com/weaveflow/weaveflow/pkg/logger"
)

// RunFunc drives one workflow run to completion or suspension. cron/v3
// invokes each entry's callback on its own goroutine, so a RunFunc that
// blocks for the run's duration does not stall other scheduled entries.
type RunFunc func(ctx context.Context, doc *workflow.Document, payload map[string]any) (runtime.RunResult, error)

// Scheduler owns the process's cron entries for `trigger.type == scheduled`
// workflow documents, grounded on the teacher pack's robfig/cron/v3
// AddFunc/Remove/Start/Stop wiring.
type Scheduler struct {
	cron *cron.Cron
	run  RunFunc
	log  logger.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID // keyed by workflow name
}

// NewScheduler builds a Scheduler bound to run. The cron loop runs minute
// resolution (no seconds field), matching the five-field cron grammar
// spec.md's `trigger.cron` field expects.
func NewScheduler(run RunFunc, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.FromContext(context.Background())
	}
	return &Scheduler{
		cron:    cron.New(),
		run:     run,
		log:     log,
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins firing registered cron entries.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for in-flight cron callbacks to return, or ctx to expire,
// whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds or replaces a cron entry for doc. doc.Trigger.Kind must be
// TriggerScheduled; any existing entry for the same workflow name is
// removed first so re-registering a document (e.g. after a reload) doesn't
// leave a stale duplicate firing.
func (s *Scheduler) Register(doc *workflow.Document, payload map[string]any) error {
	if doc.Trigger.Kind != workflow.TriggerScheduled {
		return fmt.Errorf("trigger: workflow %q is not a scheduled trigger", doc.Name)
	}
	if doc.Trigger.Cron == "" {
		return fmt.Errorf("trigger: workflow %q has a scheduled trigger with no cron expression", doc.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[doc.Name]; ok {
		s.cron.Remove(existing)
		delete(s.entries, doc.Name)
	}

	entryID, err := s.cron.AddFunc(doc.Trigger.Cron, func() {
		s.fire(doc, payload)
	})
	if err != nil {
		return fmt.Errorf("trigger: invalid cron expression %q for workflow %q: %w", doc.Trigger.Cron, doc.Name, err)
	}
	s.entries[doc.Name] = entryID
	s.log.Info("registered scheduled trigger", "workflow", doc.Name, "cron", doc.Trigger.Cron)
	return nil
}

// Unregister removes the cron entry for the named workflow, if any.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[name]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, name)
		s.log.Info("unregistered scheduled trigger", "workflow", name)
	}
}

// Scheduled reports the workflow names currently holding a cron entry.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) fire(doc *workflow.Document, payload map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.run(ctx, doc, payload); err != nil {
		s.log.Error("scheduled workflow run failed to start", "workflow", doc.Name, "error", err)
	}
}
