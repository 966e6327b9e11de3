package approval

import (
	"fmt"
	"sync"
	"time"

	"github.com/weaveflow/weaveflow/engine/core"
)

// ResumeCallback is invoked exactly once when a suspended workflow's ticket
// reaches a terminal state, carrying the StepResult the paused step should
// resume with.
type ResumeCallback func(result core.StepResult)

// Manager is the Approval Manager: it creates tickets for suspended
// approval steps, accepts submissions, expires overdue tickets, and fires
// each ticket's resume callback exactly once.
type Manager struct {
	store Store

	mu        sync.Mutex
	callbacks map[string]ResumeCallback
	fired     map[string]bool
}

// NewManager builds a Manager backed by store. Pass NewMemoryStore() for the
// common single-process case, or a *FileStore for multi-process deployments.
func NewManager(store Store) *Manager {
	return &Manager{
		store:     store,
		callbacks: make(map[string]ResumeCallback),
		fired:     make(map[string]bool),
	}
}

// Create opens a new pending ticket for workflowUID and returns the form URL
// the waiting_for_input step result should surface to the caller.
func (m *Manager) Create(
	workflowUID, stepID string,
	formSchema map[string]any,
	assignees []string,
	timeout time.Duration,
) (string, error) {
	now := time.Now()
	ticket := Ticket{
		UID:         newTicketUID(),
		WorkflowUID: workflowUID,
		StepID:      stepID,
		FormSchema:  formSchema,
		Assignees:   assignees,
		Status:      TicketPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(timeout),
	}
	if err := m.store.Put(ticket); err != nil {
		return "", fmt.Errorf("approval manager: failed to create ticket for %s: %w", workflowUID, err)
	}
	return ticket.FormURL(), nil
}

// RegisterResumeCallback binds cb to workflowUID. The engine calls this when
// it suspends a step on a waiting_for_input result; Submit and ExpireDue
// invoke cb exactly once, then forget it.
func (m *Manager) RegisterResumeCallback(workflowUID string, cb ResumeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[workflowUID] = cb
}

// Status returns the current ticket for workflowUID.
func (m *Manager) Status(workflowUID string) (Ticket, bool, error) {
	return m.store.Get(workflowUID)
}

// Submit records submission against workflowUID's ticket and resumes the
// waiting step. Resubmitting against a ticket already in a terminal state
// is idempotent: it reports accepted=false and does not fire the callback
// again.
func (m *Manager) Submit(workflowUID string, submission map[string]any) (bool, error) {
	ticket, ok, err := m.store.Get(workflowUID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("approval manager: no ticket for %s", workflowUID)
	}
	if ticket.Status.IsTerminal() {
		return false, nil
	}

	ticket.Status = TicketAccepted
	ticket.Submission = submission
	if err := m.store.Put(ticket); err != nil {
		return false, fmt.Errorf("approval manager: failed to record submission for %s: %w", workflowUID, err)
	}

	m.fire(workflowUID, core.OK(submission))
	return true, nil
}

// ExpireDue scans every pending ticket, marks those whose ExpiresAt has
// passed relative to now as expired, and fires their resume callback with a
// terminal timeout result. It returns the tickets it expired.
func (m *Manager) ExpireDue(now time.Time) ([]Ticket, error) {
	tickets, err := m.store.All()
	if err != nil {
		return nil, fmt.Errorf("approval manager: failed to list tickets: %w", err)
	}

	var expired []Ticket
	for _, ticket := range tickets {
		if ticket.Status.IsTerminal() || now.Before(ticket.ExpiresAt) {
			continue
		}
		ticket.Status = TicketExpired
		if err := m.store.Put(ticket); err != nil {
			return expired, fmt.Errorf("approval manager: failed to expire ticket %s: %w", ticket.WorkflowUID, err)
		}
		expired = append(expired, ticket)
		m.fire(ticket.WorkflowUID, core.Timeout(fmt.Sprintf("approval ticket %s expired without a submission", ticket.UID)))
	}
	return expired, nil
}

// fire invokes workflowUID's registered callback exactly once, guarding
// against both a double Submit/ExpireDue race and a missing registration.
func (m *Manager) fire(workflowUID string, result core.StepResult) {
	m.mu.Lock()
	if m.fired[workflowUID] {
		m.mu.Unlock()
		return
	}
	cb, ok := m.callbacks[workflowUID]
	m.fired[workflowUID] = true
	delete(m.callbacks, workflowUID)
	m.mu.Unlock()

	if ok && cb != nil {
		cb(result)
	}
}
