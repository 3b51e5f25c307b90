package run

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"

	"poll-simul/aggregate"
	"poll-simul/poller"
)

func validConfig() Config {
	return Config{
		TotalCores:     4,
		ActiveCores:    4,
		PollersPerCore: 3,
		Duration:       time.Second,
		Labels:         []int{4, 100, 65},
		Poller:         poller.Config{TicksPerCycle: 10},
		ReservoirK:     1000,
		Strategy:       &aggregate.Exhaustive{},
		Mode:           ModeFinal,
		Separator:      ",",
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"valid", func(c *Config) {}, true},
		{"run until interrupted", func(c *Config) { c.Duration = 0 }, true},
		{"no labels", func(c *Config) { c.Labels = nil }, true},
		{"zero total cores", func(c *Config) { c.TotalCores = 0 }, false},
		{"negative total cores", func(c *Config) { c.TotalCores = -2 }, false},
		{"zero active cores", func(c *Config) { c.ActiveCores = 0 }, false},
		{"active exceeds total", func(c *Config) { c.ActiveCores = 5 }, false},
		{"negative duration", func(c *Config) { c.Duration = -time.Second }, false},
		{"zero pollers per core", func(c *Config) { c.PollersPerCore = 0 }, false},
		{"zero reservoir", func(c *Config) { c.ReservoirK = 0 }, false},
		{"negative ticks", func(c *Config) { c.Poller.TicksPerCycle = -1 }, false},
		{"negative slots", func(c *Config) { c.Poller.SlotsPerWorker = -1 }, false},
		{"four labels", func(c *Config) { c.Labels = []int{1, 2, 3, 4} }, false},
		{"no strategy", func(c *Config) { c.Strategy = nil }, false},
		{"periodic without interval", func(c *Config) { c.Mode = ModePeriodic }, false},
		{"periodic", func(c *Config) { c.Mode = ModePeriodic; c.Interval = time.Second }, true},
		{"unknown mode", func(c *Config) { c.Mode = Mode(7) }, false},
		{"reservoir overflow", func(c *Config) { c.ReservoirK = math.MaxInt / 4 }, false},
		{"poller count overflow", func(c *Config) {
			c.TotalCores = math.MaxInt / 2
			c.ActiveCores = 1
		}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	testCases := []struct {
		name     string
		total    int
		active   int
		perCore  int
		slots    int
		expected []int
	}{
		{"even spread", 4, 4, 3, 0, []int{3, 3, 3, 3}},
		{"remainder to first workers", 5, 4, 3, 0, []int{4, 4, 4, 3}},
		{"uneven spread", 4, 3, 1, 0, []int{2, 1, 1}},
		{"one poller per worker", 4, 4, 1, 0, []int{1, 1, 1, 1}},
		{"fixed slots", 4, 4, 3, 5, []int{5, 5, 2}},
		{"fixed slots exact", 4, 1, 2, 4, []int{4, 4}},
		{"single slot workers", 2, 1, 3, 1, []int{1, 1, 1, 1, 1, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.TotalCores = tc.total
			cfg.ActiveCores = tc.active
			cfg.PollersPerCore = tc.perCore
			cfg.Poller.SlotsPerWorker = tc.slots

			got := cfg.Layout()
			if !slices.Equal(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
			sum := 0
			for _, n := range got {
				sum += n
			}
			if sum != cfg.Pollers() {
				t.Errorf("layout covers %d pollers, expected %d", sum, cfg.Pollers())
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("periodic"); err != nil || m != ModePeriodic {
		t.Errorf("periodic: got %v, %v", m, err)
	}
	if m, err := ParseMode("final"); err != nil || m != ModeFinal {
		t.Errorf("final: got %v, %v", m, err)
	}
	if _, err := ParseMode("continuous"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("continuous: expected ErrInvalidConfig, got %v", err)
	}
}

func TestStop(t *testing.T) {
	s := NewStop()
	if s.Stopped() {
		t.Fatal("new stop already set")
	}
	select {
	case <-s.Done():
		t.Fatal("done closed before Set")
	default:
	}

	s.Set()
	s.Set()
	if !s.Stopped() {
		t.Error("Stopped false after Set")
	}
	select {
	case <-s.Done():
	default:
		t.Error("done not closed after Set")
	}
}
