// Package units converts Kubernetes quantity strings into canonical numbers
// (CPU cores, memory bytes) and renders those numbers for display.
//
// Parsing never fails: anything that cannot be understood becomes 0 and is
// reported through the default slog logger at debug level.
package units

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	coreV1 "k8s.io/api/core/v1"
)

const (
	Ki = 1024.0
	Mi = Ki * 1024
	Gi = Mi * 1024
	Ti = Gi * 1024
	Pi = Ti * 1024
	Ei = Pi * 1024
)

var numberPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?|\.[0-9]+`)

// cpuSuffixes are checked in order; longest suffixes first.
var cpuSuffixes = []struct {
	suffix  string
	divisor float64
}{
	{"n", 1e9},
	{"µ", 1e6},
	{"u", 1e6},
	{"m", 1e3},
}

// memorySuffixes are checked in order; binary two-letter suffixes must come
// before their decimal single-letter counterparts.
var memorySuffixes = []struct {
	suffix     string
	multiplier float64
}{
	{"Ki", Ki},
	{"Mi", Mi},
	{"Gi", Gi},
	{"Ti", Ti},
	{"Pi", Pi},
	{"Ei", Ei},
	{"k", 1e3},
	{"K", 1e3},
	{"M", 1e6},
	{"G", 1e9},
	{"T", 1e12},
	{"P", 1e15},
	{"E", 1e18},
	{"m", 1e-3},
}

func clean(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, `"`, ""))
}

// parseNumber parses s as a float, falling back to the first numeric
// substring of s. ok is false when s holds no digits at all.
func parseNumber(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return v, true
	}
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCPU converts a CPU quantity ("250n", "100m", "1.5", "\"2\"") to cores.
func ParseCPU(raw string) float64 {
	s := clean(raw)
	if s == "" {
		return 0
	}
	for _, sfx := range cpuSuffixes {
		if strings.HasSuffix(s, sfx.suffix) {
			v, ok := parseNumber(strings.TrimSuffix(s, sfx.suffix))
			if !ok {
				slog.Debug("unparseable cpu quantity", "value", raw)
				return 0
			}
			return v / sfx.divisor
		}
	}
	v, ok := parseNumber(s)
	if !ok {
		slog.Debug("unparseable cpu quantity", "value", raw)
		return 0
	}
	return v
}

// ParseMemory converts a memory quantity ("1Ki", "512Mi", "1G", "1000") to bytes.
func ParseMemory(raw string) float64 {
	s := clean(raw)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return float64(v)
	}
	for _, sfx := range memorySuffixes {
		if strings.HasSuffix(s, sfx.suffix) {
			if v, ok := parseNumber(strings.TrimSuffix(s, sfx.suffix)); ok {
				return v * sfx.multiplier
			}
			break
		}
	}
	v, ok := parseNumber(s)
	if !ok {
		slog.Debug("unparseable memory quantity", "value", raw)
		return 0
	}
	return v
}

// QuantityString returns the canonical string of the named resource in list,
// or "0" when the resource is absent.
func QuantityString(list coreV1.ResourceList, name coreV1.ResourceName) string {
	q, ok := list[name]
	if !ok {
		return "0"
	}
	return q.String()
}

// FormatCPU renders cores as microcores, millicores or cores.
func FormatCPU(cores float64) string {
	switch {
	case cores == 0 || math.IsNaN(cores):
		return "0"
	case cores < 0.001:
		return fmt.Sprintf("%.0fµ", cores*1e6)
	case cores < 1:
		return fmt.Sprintf("%.0fm", cores*1e3)
	case cores == math.Trunc(cores):
		return fmt.Sprintf("%.0f", cores)
	default:
		return fmt.Sprintf("%.2f", cores)
	}
}

// FormatMemory renders bytes for a single node or pod. Whole Gi is preferred
// from 1Gi upwards; smaller values use B, Ki or Mi.
func FormatMemory(bytes float64) string {
	switch {
	case bytes == 0 || math.IsNaN(bytes):
		return "0"
	case bytes >= Gi:
		return fmt.Sprintf("%.0fGi", bytes/Gi)
	case bytes < Ki:
		return fmt.Sprintf("%.0fB", bytes)
	case bytes < Mi:
		return fmt.Sprintf("%.0fKi", bytes/Ki)
	default:
		return fmt.Sprintf("%.0fMi", bytes/Mi)
	}
}

// FormatGroupMemory always renders Gi: one decimal below 1Gi, otherwise
// rounded to the nearest whole Gi.
func FormatGroupMemory(bytes float64) string {
	if bytes == 0 || math.IsNaN(bytes) {
		return "0Gi"
	}
	gi := bytes / Gi
	if gi > 0 && gi < 1 {
		return fmt.Sprintf("%.1fGi", gi)
	}
	return fmt.Sprintf("%dGi", int64(math.Round(gi)))
}

// FormatGroupMemoryTotal renders a group total in whole Gi.
func FormatGroupMemoryTotal(bytes float64) string {
	if math.IsNaN(bytes) {
		return "0Gi"
	}
	return fmt.Sprintf("%dGi", int64(math.Round(bytes/Gi)))
}
