// Package scenario turns per-hour edge data files into simulator route
// files and runs simulations over them through the SUMO command line tools.
package scenario

import (
	"context"
	"os/exec"
)

// CommandRunner executes an external tool to completion and returns its
// combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands as blocking subprocesses
type ExecRunner struct {
	// Dir is the working directory; empty uses the current one
	Dir string
}

// Run executes name with args and waits for it to exit
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	return cmd.CombinedOutput()
}
