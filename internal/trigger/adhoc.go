package trigger

import (
	"encoding/json"
	"fmt"

	"github.com/weaveflow/weaveflow/engine/workflow"
)

// AdHocRequest is the body of POST /api/adhoc (spec.md §6): an inline
// workflow document plus an optional initial payload.
type AdHocRequest struct {
	Workflow json.RawMessage `json:"workflow"`
	Payload  map[string]any  `json:"payload,omitempty"`
}

// ParseAdHocRequest decodes body into a Document and its initial payload.
// schema may be nil to skip schema validation, matching workflow.Load's own
// option. Document.Validate always runs, since it catches invariants (step
// id uniqueness, forward-only on_failure_step jumps) a schema cannot.
func ParseAdHocRequest(body []byte, schema *workflow.Schema) (*workflow.Document, map[string]any, error) {
	var req AdHocRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, fmt.Errorf("trigger: failed to parse ad-hoc request: %w", err)
	}
	if len(req.Workflow) == 0 {
		return nil, nil, fmt.Errorf("trigger: ad-hoc request is missing \"workflow\"")
	}

	if schema != nil {
		if err := schema.Validate(req.Workflow); err != nil {
			return nil, nil, err
		}
	}

	var doc workflow.Document
	if err := json.Unmarshal(req.Workflow, &doc); err != nil {
		return nil, nil, fmt.Errorf("trigger: failed to decode workflow document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, err
	}
	return &doc, req.Payload, nil
}
