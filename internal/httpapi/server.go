// Package httpapi serves the engine process's two HTTP surfaces (spec.md
// §6): the ad-hoc trigger endpoint and the Approval Manager's webform
// endpoints. Route handlers are thin: all decoding lives in
// internal/trigger, all ticket bookkeeping lives in engine/approval.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weaveflow/weaveflow/engine/approval"
	"github.com/weaveflow/weaveflow/engine/runtime"
	"github.com/weaveflow/weaveflow/engine/workflow"
	"github.com/weaveflow/weaveflow/pkg/logger"
)

// EngineFactory builds a runtime.Engine for an ad-hoc document and its
// initial payload without running it. Splitting construction from Run lets
// the adhoc handler read the generated workflow_uid and answer the HTTP
// request before the run reaches a terminal state or suspends.
type EngineFactory func(doc *workflow.Document, payload map[string]any) (*runtime.Engine, error)

// Options configures a Server.
type Options struct {
	Addr      string
	Schema    *workflow.Schema // optional; nil skips ad-hoc document schema validation
	Approvals *approval.Manager
	NewEngine EngineFactory
	// RunTimeout bounds an ad-hoc run kicked off in its own goroutine. It
	// does not bound time spent suspended waiting on an approval ticket,
	// since the engine detaches from this context at that point.
	RunTimeout time.Duration
	Logger     logger.Logger
}

// Server wraps a gin.Engine with a graceful-shutdown http.Server, grounded
// on the teacher pack's gin.New()+Recovery()+http.Server wiring.
type Server struct {
	opts   Options
	engine *gin.Engine
	http   *http.Server
	log    logger.Logger
}

// New builds a Server ready to Start. Approvals and NewEngine are required.
func New(opts Options) (*Server, error) {
	if opts.Approvals == nil {
		return nil, fmt.Errorf("httpapi: Options.Approvals is required")
	}
	if opts.NewEngine == nil {
		return nil, fmt.Errorf("httpapi: Options.NewEngine is required")
	}
	if opts.RunTimeout == 0 {
		opts.RunTimeout = 15 * time.Minute
	}
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(context.Background())
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{opts: opts, engine: engine, log: log}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.engine.POST("/api/adhoc", s.handleAdHoc)
	s.engine.GET("/webform/:uid", s.handleWebformGet)
	s.engine.POST("/webform/:uid", s.handleWebformPost)
}

// Handler exposes the underlying http.Handler, for tests and for embedding
// behind another server's mux.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
