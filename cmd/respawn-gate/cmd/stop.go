package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var stopTimeout time.Duration

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running respawn-gate daemon",
	Long: `Stop a running daemon by reading its PID file and asking the process
to shut down. The PID file is located at ~/.respawn-gate/server.pid.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 10*time.Second, "how long to wait before force-killing")
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	pidPath := pidFilePath()

	pid := readPIDFile(pidPath)
	if pid == 0 {
		return fmt.Errorf("no daemon PID file at %s; is the daemon running?", pidPath)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidPath)
		return fmt.Errorf("invalid PID %d: %w", pid, err)
	}
	if !daemonRunning(proc) {
		os.Remove(pidPath)
		return fmt.Errorf("daemon process %d is not running (stale PID file removed)", pid)
	}

	fmt.Fprintf(os.Stderr, "Stopping respawn-gate daemon (PID %d)...\n", pid)
	if err := stopDaemon(proc); err != nil {
		return fmt.Errorf("stop daemon: %w", err)
	}

	if waitForExit(proc, stopTimeout) {
		os.Remove(pidPath)
		fmt.Fprintln(os.Stderr, "Daemon stopped.")
		return nil
	}

	fmt.Fprintln(os.Stderr, "Daemon did not stop in time, killing it.")
	_ = proc.Kill()
	os.Remove(pidPath)
	return nil
}

// waitForExit polls the process until it dies or the deadline passes.
func waitForExit(proc *os.Process, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		if !daemonRunning(proc) {
			return true
		}
	}
	return false
}
