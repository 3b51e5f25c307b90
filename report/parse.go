package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// Row is a report line read back for analysis. Labels keep their text as written.
type Row struct {
	Labels []string
	Power  float64
	P50    float64
	P99    float64
}

// ParseLine parses a comma or whitespace separated report line. The last three
// fields are power, p50 and p99; everything before them is a label.
func ParseLine(line string) (Row, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) < 3 {
		return Row{}, fmt.Errorf("report line %q: expected at least 3 fields, got %d", line, len(fields))
	}

	n := len(fields)
	vals := make([]float64, 3)
	for i, f := range fields[n-3:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Row{}, fmt.Errorf("report line %q: field %d: %w", line, n-3+i+1, err)
		}
		vals[i] = v
	}
	return Row{
		Labels: append([]string(nil), fields[:n-3]...),
		Power:  vals[0],
		P50:    vals[1],
		P99:    vals[2],
	}, nil
}

// ParseLines reads every report line from r, skipping blank lines and # comments.
func ParseLines(r io.Reader) ([]Row, error) {
	var rows []Row
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		row, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
