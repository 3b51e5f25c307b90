// Package power turns processor energy counters into average power draw.
package power

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultBase is where the kernel exposes powercap zones.
const DefaultBase = "/sys/class/powercap"

// EnergyZone is a cumulative energy counter in microjoules. The counter wraps to
// zero after reaching MaxEnergy.
type EnergyZone interface {
	Name() string
	Energy() (uint64, error)
	// MaxEnergy is the wrap point, 0 when unknown.
	MaxEnergy() uint64
}

// RAPLZone reads one powercap zone. The energy file stays open and is re-read
// from offset 0 on every sample.
type RAPLZone struct {
	name string
	path string
	max  uint64
	file *os.File
	buf  []byte
}

// OpenRAPLZone opens the zone directory dir (for example
// /sys/class/powercap/intel-rapl:0).
func OpenRAPLZone(dir string) (*RAPLZone, error) {
	maxUJ, err := readUint64File(filepath.Join(dir, "max_energy_range_uj"))
	if err != nil {
		return nil, err
	}

	name := filepath.Base(dir)
	if data, err := os.ReadFile(filepath.Join(dir, "name")); err == nil {
		name = name + "/" + strings.TrimSpace(string(data))
	}

	path := filepath.Join(dir, "energy_uj")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	z := &RAPLZone{
		name: name,
		path: path,
		max:  maxUJ,
		file: f,
		buf:  make([]byte, 32), // energy_uj is a single decimal counter
	}
	if _, err := z.Energy(); err != nil {
		f.Close()
		return nil, err
	}
	return z, nil
}

func (z *RAPLZone) Name() string { return z.name }

func (z *RAPLZone) MaxEnergy() uint64 { return z.max }

// Energy seeks to start and reads the counter (avoids open/close overhead)
func (z *RAPLZone) Energy() (uint64, error) {
	if _, err := z.file.Seek(0, 0); err != nil {
		return 0, err
	}
	n, err := z.file.Read(z.buf)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", z.path, err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(z.buf[:n])), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", z.path, err)
	}
	return v, nil
}

// Close closes the file handle
func (z *RAPLZone) Close() error {
	return z.file.Close()
}

func readUint64File(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// Top-level packages only; intel-rapl:0:0 style subzones are already counted in
// their parent.
var packageZone = regexp.MustCompile(`^intel-rapl:(\d+)$`)

// Discover opens the top-level RAPL package zones under base. index >= 0 selects
// a single package, -1 selects all of them. Zones that cannot be read are skipped;
// an empty result with a nil error means no telemetry is available.
func Discover(base string, index int) ([]*RAPLZone, error) {
	if base == "" {
		base = DefaultBase
	}
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("powercap: %w", err)
	}

	type candidate struct {
		idx int
		dir string
	}
	var found []candidate
	for _, e := range entries {
		m := packageZone.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		idx, _ := strconv.Atoi(m[1])
		if index >= 0 && idx != index {
			continue
		}
		found = append(found, candidate{idx, filepath.Join(base, e.Name())})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].idx < found[j].idx })

	var zones []*RAPLZone
	for _, c := range found {
		z, err := OpenRAPLZone(c.dir)
		if err != nil {
			continue
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// Zones converts discovered RAPL zones to the EnergyZone interface.
func Zones(rapl []*RAPLZone) []EnergyZone {
	zones := make([]EnergyZone, len(rapl))
	for i, z := range rapl {
		zones[i] = z
	}
	return zones
}
