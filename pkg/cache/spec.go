package cache

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// Spec is a parsed cache specification string such as
// "maximumSize=8192,expireAfterWrite=2m,recordStats".
//
// Unset numeric fields are -1 and unset durations are 0.
type Spec struct {
	ConcurrencyLevel  int
	InitialCapacity   int
	MaximumSize       int
	ExpireAfterWrite  time.Duration
	ExpireAfterAccess time.Duration
	RecordStats       bool
}

// Spec keys.
const (
	specConcurrency  = "concurrencyLevel"
	specInitialCap   = "initialCapacity"
	specMaximumSize  = "maximumSize"
	specExpireWrite  = "expireAfterWrite"
	specExpireAccess = "expireAfterAccess"
	specRecordStats  = "recordStats"
)

// DefaultSpec returns the default specification string.
func DefaultSpec(recordStats bool) string {
	s := "concurrencyLevel=" + strconv.Itoa(runtime.GOMAXPROCS(0)) +
		",initialCapacity=1024,maximumSize=8192,expireAfterWrite=2m"
	if recordStats {
		s += "," + specRecordStats
	}
	return s
}

// ParseSpec parses a specification string. Unknown keys, repeated keys and
// malformed values fail with mqerr.InvalidArgument.
func ParseSpec(s string) (Spec, error) {
	const op = "cache.parse_spec"
	spec := Spec{ConcurrencyLevel: -1, InitialCapacity: -1, MaximumSize: -1}
	seen := make(map[string]bool)

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, hasVal := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if seen[key] {
			return Spec{}, mqerr.Errorf(mqerr.InvalidArgument, op, "%s was already set", key)
		}
		seen[key] = true

		if key == specRecordStats {
			if hasVal {
				return Spec{}, mqerr.Errorf(mqerr.InvalidArgument, op, "%s does not take a value", key)
			}
			spec.RecordStats = true
			continue
		}
		if !hasVal || val == "" {
			return Spec{}, mqerr.Errorf(mqerr.InvalidArgument, op, "%s requires a value", key)
		}

		var err error
		switch key {
		case specConcurrency:
			spec.ConcurrencyLevel, err = parseCount(val)
		case specInitialCap:
			spec.InitialCapacity, err = parseCount(val)
		case specMaximumSize:
			spec.MaximumSize, err = parseCount(val)
		case specExpireWrite:
			spec.ExpireAfterWrite, err = parseSpecDuration(val)
		case specExpireAccess:
			spec.ExpireAfterAccess, err = parseSpecDuration(val)
		default:
			return Spec{}, mqerr.Errorf(mqerr.InvalidArgument, op, "unknown key %q", key)
		}
		if err != nil {
			return Spec{}, mqerr.Errorf(mqerr.InvalidArgument, op, "%s=%s: %v", key, val, err)
		}
	}
	if spec.ConcurrencyLevel == 0 {
		return Spec{}, mqerr.Errorf(mqerr.InvalidArgument, op, "%s must be positive", specConcurrency)
	}
	return spec, nil
}

// MustParseSpec is like ParseSpec but panics on error.
func MustParseSpec(s string) Spec {
	spec, err := ParseSpec(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func parseCount(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

var durationUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'h': time.Hour,
	'm': time.Minute,
	's': time.Second,
}

// parseSpecDuration parses "<n><unit>" with unit one of d, h, m, s.
func parseSpecDuration(v string) (time.Duration, error) {
	unit, ok := durationUnits[v[len(v)-1]]
	if !ok {
		return 0, strconv.ErrSyntax
	}
	n, err := parseCount(v[:len(v)-1])
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * unit, nil
}

func formatSpecDuration(d time.Duration) string {
	for _, u := range []struct {
		suffix string
		unit   time.Duration
	}{{"d", 24 * time.Hour}, {"h", time.Hour}, {"m", time.Minute}} {
		if d%u.unit == 0 {
			return strconv.FormatInt(int64(d/u.unit), 10) + u.suffix
		}
	}
	return strconv.FormatInt(int64(d/time.Second), 10) + "s"
}

// String renders the spec in canonical form; ParseSpec(s.String()) == s.
func (s Spec) String() string {
	var parts []string
	if s.ConcurrencyLevel >= 0 {
		parts = append(parts, specConcurrency+"="+strconv.Itoa(s.ConcurrencyLevel))
	}
	if s.InitialCapacity >= 0 {
		parts = append(parts, specInitialCap+"="+strconv.Itoa(s.InitialCapacity))
	}
	if s.MaximumSize >= 0 {
		parts = append(parts, specMaximumSize+"="+strconv.Itoa(s.MaximumSize))
	}
	if s.ExpireAfterWrite > 0 {
		parts = append(parts, specExpireWrite+"="+formatSpecDuration(s.ExpireAfterWrite))
	}
	if s.ExpireAfterAccess > 0 {
		parts = append(parts, specExpireAccess+"="+formatSpecDuration(s.ExpireAfterAccess))
	}
	if s.RecordStats {
		parts = append(parts, specRecordStats)
	}
	return strings.Join(parts, ",")
}

// bounded reports whether the spec limits the number of entries.
func (s Spec) bounded() bool { return s.MaximumSize >= 0 }
