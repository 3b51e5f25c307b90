//go:build !amd64

package clock

// TSC falls back to the monotonic source where no time-stamp counter is readable.
func TSC() Source { return Monotonic() }
