package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"runtime"
	"strconv"

	"github.com/weaveflow/weaveflow/engine/core"
	"github.com/weaveflow/weaveflow/engine/manifest"
)

// CommandClass is the manifest class name builtin.Command registers under.
const CommandClass = "builtin.Command"

// Command is the reference subprocess-executing module, grounded in
// original_source's command_module. The "run as a different OS user"
// privilege-drop hook flagged in spec.md §9 as POSIX-only is implemented via
// os/exec's SysProcAttr, guarded by a GOOS check rather than silently
// ignoring the user field on unsupported platforms.
type Command struct {
	shell string
}

// NewCommand is a module.Factory for Command.
func NewCommand(config map[string]any) (*Command, error) {
	shell, _ := config["shell"].(string)
	if shell == "" {
		shell = "/bin/bash"
	}
	return &Command{shell: shell}, nil
}

// Invoke implements module.Module.
func (c *Command) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	if method != "run" {
		return nil, fmt.Errorf("command: unknown method %q", method)
	}
	command, _ := args["command"].(string)
	cwd, _ := args["cwd"].(string)
	runAsUser, _ := args["user"].(string)
	shell := c.shell
	if s, ok := args["shell"].(string); ok && s != "" {
		shell = s
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Env = os.Environ()
	if env := core.ToStringMap(args["env"]); env != nil {
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	if cwd != "" {
		cmd.Dir = cwd
	}

	if runAsUser != "" {
		if err := applyRunAsUser(cmd, runAsUser); err != nil {
			return core.Fail(err.Error()), nil
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	} else if err != nil {
		return core.Fail(fmt.Sprintf("unhandled exception: %v", err)), nil
	}

	if exitCode != 0 {
		return core.StepResult{
			Status:  core.StatusFail,
			Message: core.RedactString(fmt.Sprintf("command failed: %s", stderr.String())),
			Data: map[string]any{
				"stdout":    stdout.String(),
				"stderr":    stderr.String(),
				"exit_code": exitCode,
			},
		}, nil
	}

	return core.OK(map[string]any{
		"stdout":    stdout.String(),
		"exit_code": exitCode,
	}), nil
}

// CommandManifest is the compile-time manifest literal for Command.
func CommandManifest() manifest.Manifest {
	return manifest.Manifest{
		Name:    "command",
		Class:   CommandClass,
		Version: "1.0.0",
		Author:  "builtin",
		Methods: []manifest.MethodDescriptor{
			{
				Name: "run",
				Arguments: []manifest.ArgumentDescriptor{
					{Name: "command", Required: true, Type: "string"},
				},
				Returns: "step_result",
			},
		},
	}
}

func lookupUID(username string) (uint32, uint32, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return 0, 0, fmt.Errorf("command: unknown user %q: %w", username, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("command: invalid uid for %q: %w", username, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("command: invalid gid for %q: %w", username, err)
	}
	return uint32(uid), uint32(gid), nil
}

func runAsUserSupported() bool {
	return runtime.GOOS == "linux" || runtime.GOOS == "darwin"
}
