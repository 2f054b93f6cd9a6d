package scenario

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// SimulatorOptions configures the simulator binary
type SimulatorOptions struct {
	Binary    string
	GUIBinary string
	Config    string // .sumocfg
	ActiveGUI bool
}

// Simulator runs one blocking simulation at a time
type Simulator struct {
	opts   SimulatorOptions
	runner CommandRunner
	log    logrus.FieldLogger
	mu     sync.Mutex
}

// NewSimulator creates a simulator
func NewSimulator(opts SimulatorOptions, runner CommandRunner, log logrus.FieldLogger) *Simulator {
	if opts.Binary == "" {
		opts.Binary = "sumo"
	}
	if opts.GUIBinary == "" {
		opts.GUIBinary = "sumo-gui"
	}
	return &Simulator{opts: opts, runner: runner, log: log.WithField("component", "simulator")}
}

// Command returns the binary and arguments simulating routes
func (s *Simulator) Command(routes, logFile string) (string, []string) {
	bin := s.opts.Binary
	if s.opts.ActiveGUI {
		bin = s.opts.GUIBinary
	}
	args := []string{"-c", s.opts.Config, "--route-files", routes}
	if logFile != "" {
		args = append(args, "--log", logFile)
	}
	return bin, args
}

// Run simulates routes to completion. Concurrent calls are serialized.
func (s *Simulator) Run(ctx context.Context, routes, logFile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bin, args := s.Command(routes, logFile)
	s.log.WithFields(logrus.Fields{"routes": routes, "binary": bin}).Info("simulation started")
	if out, err := s.runner.Run(ctx, bin, args...); err != nil {
		return fmt.Errorf("simulation failed: %w, output: %s", err, string(out))
	}
	s.log.WithField("routes", routes).Info("simulation finished")
	return nil
}
