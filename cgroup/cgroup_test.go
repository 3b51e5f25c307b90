package cgroup

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPlaceWritesTid(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "poller_test"), 0o755); err != nil {
		t.Fatal(err)
	}
	p := &Placer{Root: root, Group: "poller_test"}
	if err := os.WriteFile(p.Path(), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := p.Place(4242); err != nil {
		t.Fatalf("place: %v", err)
	}

	data, err := os.ReadFile(p.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4242" {
		t.Errorf("expected tid 4242 written, got %q", data)
	}
}

func TestPlaceMissingGroup(t *testing.T) {
	p := &Placer{Root: t.TempDir(), Group: "absent"}
	if err := p.Place(1); err == nil {
		t.Error("expected error for missing cgroup")
	}
}

func TestNewUsesDefaultRoot(t *testing.T) {
	p := New("poller_test")
	if p.Path() != "/sys/fs/cgroup/poller_test/cgroup.threads" {
		t.Errorf("unexpected path %s", p.Path())
	}
}
