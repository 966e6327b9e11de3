package httpapi

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/weaveflow/weaveflow/engine/approval"
)

// handleWebformGet returns a ticket's form schema. The uid path segment is
// the workflow_uid, not the ticket's own uid field — Ticket.FormURL builds
// this exact path from WorkflowUID.
func (s *Server) handleWebformGet(c *gin.Context) {
	workflowUID := c.Param("uid")
	ticket, ok := s.lookupTicket(c, workflowUID)
	if !ok {
		return
	}
	c.JSON(200, ticket)
}

// handleWebformPost submits a form payload against workflowUID's ticket.
func (s *Server) handleWebformPost(c *gin.Context) {
	workflowUID := c.Param("uid")
	_, ok := s.lookupTicket(c, workflowUID)
	if !ok {
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		sendBadRequest(c, err.Error())
		return
	}
	var submission map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &submission); err != nil {
			sendBadRequest(c, err.Error())
			return
		}
	}

	accepted, err := s.opts.Approvals.Submit(workflowUID, submission)
	if err != nil {
		sendInternalError(c, err.Error())
		return
	}
	if !accepted {
		// A terminal ticket slipped past lookupTicket's check only if it
		// turned terminal between the two calls; treat it the same way.
		sendConflict(c, "ticket already resolved")
		return
	}
	c.JSON(200, gin.H{"accepted": true})
}

// lookupTicket resolves workflowUID to a pending ticket, writing the
// appropriate 404/409/410 response and returning ok=false if it can't.
func (s *Server) lookupTicket(c *gin.Context, workflowUID string) (approval.Ticket, bool) {
	ticket, found, err := s.opts.Approvals.Status(workflowUID)
	if err != nil {
		sendInternalError(c, err.Error())
		return approval.Ticket{}, false
	}
	if !found {
		sendNotFound(c, "no approval ticket for this workflow")
		return approval.Ticket{}, false
	}
	switch ticket.Status {
	case approval.TicketAccepted:
		sendConflict(c, "ticket already accepted")
		return approval.Ticket{}, false
	case approval.TicketExpired:
		sendGone(c, "ticket expired")
		return approval.Ticket{}, false
	}
	return ticket, true
}
