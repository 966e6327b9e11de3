package builtin

import (
	"context"
	"fmt"

	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
)

// EchoClass is the manifest class name builtin.Echo registers under.
const EchoClass = "builtin.Echo"

// Echo is the simplest reference module: it returns its message argument
// unchanged, useful for exercising the dispatcher and the step loop in
// isolation from any real side effect.
type Echo struct{}

// NewEcho is a module.Factory constructing an Echo instance; config is
// ignored since Echo is stateless.
func NewEcho(map[string]any) (*Echo, error) {
	return &Echo{}, nil
}

// Invoke implements module.Module.
func (e *Echo) Invoke(_ context.Context, method string, args map[string]any) (any, error) {
	switch method {
	case "say":
		message, _ := args["message"].(string)
		return core.OK(map[string]any{"value": message}), nil
	default:
		return nil, fmt.Errorf("echo: unknown method %q", method)
	}
}

// EchoManifest is the compile-time manifest literal for Echo.
func EchoManifest() manifest.Manifest {
	return manifest.Manifest{
		Name:    "echo",
		Class:   EchoClass,
		Version: "1.0.0",
		Author:  "builtin",
		Methods: []manifest.MethodDescriptor{
			{
				Name: "say",
				Arguments: []manifest.ArgumentDescriptor{
					{Name: "message", Required: true, Type: "string"},
				},
				Returns: "step_result",
			},
		},
	}
}
