package httpapi

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/weaveflow/weaveflow/internal/trigger"
)

// AdHocResponse is the body returned by POST /api/adhoc (spec.md §6).
type AdHocResponse struct {
	WorkflowUID string `json:"workflow_uid"`
	Status      string `json:"status"`
}

// handleAdHoc parses and validates an inline workflow document, starts it
// in its own goroutine, and returns as soon as a workflow_uid exists — it
// does not wait for the run to finish or suspend.
func (s *Server) handleAdHoc(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendBadRequest(c, err.Error())
		return
	}

	doc, payload, err := trigger.ParseAdHocRequest(body, s.opts.Schema)
	if err != nil {
		sendBadRequest(c, err.Error())
		return
	}

	eng, err := s.opts.NewEngine(doc, payload)
	if err != nil {
		sendInternalError(c, err.Error())
		return
	}

	uid := eng.WorkflowUID().String()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)
		defer cancel()
		if _, runErr := eng.Run(ctx); runErr != nil {
			s.log.Error("ad-hoc workflow run failed to start", "workflow", doc.Name, "workflow_uid", uid, "error", runErr)
		}
	}()

	c.JSON(202, AdHocResponse{WorkflowUID: uid, Status: "running"})
}
