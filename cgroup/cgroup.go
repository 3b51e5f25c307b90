// Package cgroup places threads into a cgroup v2 threaded group.
package cgroup

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultRoot is the cgroup v2 mount point.
const DefaultRoot = "/sys/fs/cgroup"

// Placer writes thread IDs into <Root>/<Group>/cgroup.threads.
type Placer struct {
	Root  string
	Group string
}

// New returns a placer for group under the default root.
func New(group string) *Placer {
	return &Placer{Root: DefaultRoot, Group: group}
}

// Path is the cgroup.threads file written by Place.
func (p *Placer) Path() string {
	return filepath.Join(p.Root, p.Group, "cgroup.threads")
}

// Place moves thread tid into the group. It is attempted once.
func (p *Placer) Place(tid int) error {
	f, err := os.OpenFile(p.Path(), os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	s := strconv.Itoa(tid)
	n, err := f.WriteString(s)
	if err != nil {
		return fmt.Errorf("write tid %d to %s: %w", tid, p.Path(), err)
	}
	if n != len(s) {
		return fmt.Errorf("short write of tid %d to %s (%d of %d bytes)", tid, p.Path(), n, len(s))
	}
	return nil
}
