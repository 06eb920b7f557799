//go:build !windows

package daemon

import "syscall"

// IsRunning reports whether the recorded process is still alive.
// A stale or unreadable PID file counts as not running.
func (p *PIDFile) IsRunning() (int, bool) {
	pid, err := p.Read()
	if err != nil {
		return 0, false
	}
	// Signal 0 tests if the process exists without sending a signal.
	err = syscall.Kill(pid, 0)
	return pid, err == nil
}
