package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
	"github.com/weaveflow/weaveflow/engine/match"
)

// APIClass is the manifest class name builtin.API registers under.
const APIClass = "builtin.API"

// API is the reference HTTP module: a synchronous `call` and a polling
// `blocking_call`, grounded in original_source's api_module.
type API struct {
	client                *resty.Client
	defaultTimeout        time.Duration
	defaultHeaders        map[string]string
	defaultPollInterval   time.Duration
	defaultTimeoutMinutes time.Duration
}

// NewAPI is a module.Factory for API.
func NewAPI(config map[string]any) (*API, error) {
	a := &API{
		client:                resty.New(),
		defaultTimeout:        10 * time.Second,
		defaultPollInterval:   10 * time.Second,
		defaultTimeoutMinutes: 5 * time.Minute,
	}
	if d, ok := core.ParseAnyDuration(config["timeout"]); ok {
		a.defaultTimeout = d
	}
	if d, ok := core.ParseAnySeconds(config["poll_interval_seconds"]); ok {
		a.defaultPollInterval = d
	}
	if d, ok := core.ParseAnyMinutes(config["timeout_minutes"]); ok {
		a.defaultTimeoutMinutes = d
	}
	a.defaultHeaders = core.ToStringMap(config["headers"])
	return a, nil
}

// Invoke implements module.Module.
func (a *API) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	switch method {
	case "call":
		return a.call(ctx, args)
	case "blocking_call":
		return a.blockingCall(ctx, args)
	default:
		return nil, fmt.Errorf("api: unknown method %q", method)
	}
}

func (a *API) call(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}
	headers := mergeHeaders(a.defaultHeaders, core.ToStringMap(args["headers"]))
	timeout := a.defaultTimeout
	if d, ok := core.ParseAnyDuration(args["timeout"]); ok {
		timeout = d
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := a.client.R().SetContext(reqCtx).SetHeaders(headers)
	if body, ok := args["json"]; ok {
		req = req.SetBody(body)
	}
	if params := core.ToStringMap(args["params"]); params != nil {
		req = req.SetQueryParams(params)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return core.Fail(fmt.Sprintf("exception occurred during API call: %v", err)), nil
	}

	data := map[string]any{
		"status_code": resp.StatusCode(),
		"body":        resp.String(),
		"url":         url,
	}
	if resp.IsSuccess() {
		return core.OK(data), nil
	}
	failure := core.Fail(fmt.Sprintf("request to %s failed with status %d", url, resp.StatusCode()))
	failure.Data = data
	return failure, nil
}

func (a *API) blockingCall(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	method, _ := args["method"].(string)
	if method == "" {
		method = "GET"
	}
	headers := mergeHeaders(a.defaultHeaders, core.ToStringMap(args["headers"]))

	pollInterval := a.defaultPollInterval
	if d, ok := core.ParseAnySeconds(args["poll_interval_seconds"]); ok {
		pollInterval = d
	}
	timeoutMinutes := a.defaultTimeoutMinutes
	if d, ok := core.ParseAnyMinutes(args["timeout_minutes"]); ok {
		timeoutMinutes = d
	}
	pollingMode, _ := args["polling_mode"].(string)
	if pollingMode == "" {
		pollingMode = "status_code"
	}
	expectedStatus := 200
	if v, ok := core.ParseAnyInt(args["expected_status_code"]); ok {
		expectedStatus = v
	}

	deadline := time.Now().Add(timeoutMinutes)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if time.Now().After(deadline) {
			return core.Timeout(fmt.Sprintf("polling timed out after %s", timeoutMinutes)), nil
		}

		resp, err := a.client.R().SetContext(ctx).SetHeaders(headers).Execute(method, url)
		if err == nil {
			switch pollingMode {
			case "status_code":
				if resp.StatusCode() == expectedStatus {
					return core.OK(map[string]any{"status_code": resp.StatusCode(), "body": resp.String()}), nil
				}
			case "response_body":
				if cond, ok := args["success_condition"].(map[string]any); ok {
					var body map[string]any
					if decodeErr := decodeJSON(resp.Body(), &body); decodeErr == nil {
						path, _ := cond["path"].(string)
						op, _ := cond["operator"].(string)
						actual, exists := match.ExtractPath(body, path)
						matched, evalErr := match.EvalOperator(match.Operator(op), actual, exists, cond["value"])
						if evalErr == nil && matched {
							return core.OK(body), nil
						}
					}
				}
			}
		}

		select {
		case <-ctx.Done():
			return core.Timeout(ctx.Err().Error()), nil
		case <-ticker.C:
		}
	}
}

func decodeJSON(data []byte, out *map[string]any) error {
	return json.Unmarshal(data, out)
}

func mergeHeaders(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// APIManifest is the compile-time manifest literal for API.
func APIManifest() manifest.Manifest {
	return manifest.Manifest{
		Name:    "api",
		Class:   APIClass,
		Version: "1.0.0",
		Author:  "builtin",
		Methods: []manifest.MethodDescriptor{
			{
				Name: "call",
				Arguments: []manifest.ArgumentDescriptor{
					{Name: "url", Required: true, Type: "string"},
					{Name: "method", Required: false, Type: "string"},
				},
				Returns: "step_result",
			},
			{
				Name: "blocking_call",
				Arguments: []manifest.ArgumentDescriptor{
					{Name: "url", Required: true, Type: "string"},
					{Name: "method", Required: false, Type: "string"},
				},
				Returns: "step_result",
			},
		},
	}
}
