//go:build windows

package cmd

import (
	"os"

	"golang.org/x/sys/windows"
)

// stillActive is the Windows exit code of a process that has not
// exited (STILL_ACTIVE).
const stillActive = 259

// shutdownSignals lists the signals the serve loop treats as a request
// to drain and exit. Windows only delivers os.Interrupt (Ctrl+C); there
// is no SIGTERM.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// daemonRunning probes a pidfile process. Windows has no null signal,
// so open a query handle and read the exit code instead.
func daemonRunning(proc *os.Process) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(proc.Pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == stillActive
}

// stopDaemon stops the daemon. Without SIGTERM the best Windows offers
// is TerminateProcess, which Kill wraps.
func stopDaemon(proc *os.Process) error {
	return proc.Kill()
}
