//go:build linux

package poller

import (
	"golang.org/x/sys/unix"
)

func pin(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(unix.Gettid(), &mask)
}

func threadID() int {
	return unix.Gettid()
}

// osYield gives the CPU back to the kernel scheduler, not just the Go scheduler:
// the thread is locked, so the measured gap includes the kernel's run-queue delay.
func osYield() {
	unix.Syscall(unix.SYS_SCHED_YIELD, 0, 0, 0)
}
