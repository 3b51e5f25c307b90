//go:build !linux

package poller

import (
	"errors"
	"os"
	"runtime"
)

func pin(int) error {
	return errors.New("cpu affinity not supported on " + runtime.GOOS)
}

func threadID() int {
	return os.Getpid()
}

func osYield() {
	runtime.Gosched()
}
