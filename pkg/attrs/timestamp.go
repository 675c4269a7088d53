package attrs

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/getmockd/mqfacade/pkg/pcf"
)

// TimestampLayout is the layout of a joined date and time.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseTimestamp joins a reply date ("2024-01-02") and time ("10.15.30")
// and parses the result. Anything shorter than the layout is absent.
func ParseTimestamp(date, clock string) (time.Time, error) {
	clock = strings.ReplaceAll(strings.TrimSpace(clock), ".", ":")
	s := strings.TrimSpace(strings.TrimSpace(date) + " " + clock)
	if len(s) < len(TimestampLayout) {
		return time.Time{}, ErrAbsent
	}
	return time.Parse(TimestampLayout, s[:len(TimestampLayout)])
}

func replyTimestamp(r *pcf.Reply, date, clock pcf.Param) (time.Time, error) {
	d, err := r.String(date)
	if err != nil {
		return time.Time{}, missing(err)
	}
	c, err := r.String(clock)
	if err != nil {
		return time.Time{}, missing(err)
	}
	return ParseTimestamp(d, c)
}

// HexID renders a byte-string identifier as upper-case hex.
func HexID(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}

// IsAdmin reports whether a queue name belongs to the queue manager itself.
func IsAdmin(name string) bool {
	n := strings.ToUpper(trim(name))
	return strings.HasPrefix(n, "SYSTEM.") || strings.HasPrefix(n, "AMQ.")
}

func trim(s string) string {
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}
