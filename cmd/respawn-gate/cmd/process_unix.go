//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals lists the signals the serve loop treats as a request
// to drain and exit: SIGINT from a terminal, SIGTERM from a supervisor.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// daemonRunning probes a pidfile process with the null signal.
func daemonRunning(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}

// stopDaemon asks the daemon to shut down cleanly via SIGTERM.
func stopDaemon(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
