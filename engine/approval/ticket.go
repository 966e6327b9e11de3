// Package approval implements the Approval Manager: it tracks suspended
// workflows awaiting an external form submission and correlates submission
// or expiration back to a single-shot resume callback keyed by workflow_uid.
package approval

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of one Approval Ticket.
type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketAccepted TicketStatus = "accepted"
	TicketExpired  TicketStatus = "expired"
)

// Ticket is one suspended workflow's approval record.
type Ticket struct {
	UID         string         `json:"uid"`
	WorkflowUID string         `json:"workflow_uid"`
	StepID      string         `json:"step_id"`
	FormSchema  map[string]any `json:"form_schema,omitempty"`
	Assignees   []string       `json:"assignees,omitempty"`
	Status      TicketStatus   `json:"status"`
	Submission  map[string]any `json:"submission,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ExpiresAt   time.Time      `json:"expires_at"`
}

// FormURL is the external-facing URL for this ticket, served by
// internal/httpapi's GET/POST /webform/<uid> routes.
func (t Ticket) FormURL() string {
	return "/webform/" + t.WorkflowUID
}

// newTicketUID uses uuid rather than ksuid so approval ticket ids are drawn
// from a visibly different identifier space than workflow/step ids — a
// ticket uid leaking into a log or URL is never mistaken for a workflow_uid.
func newTicketUID() string {
	return uuid.NewString()
}

// IsTerminal reports whether status no longer accepts a submission.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketAccepted || s == TicketExpired
}
