package endpoint

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// MaxPort is the highest valid TCP port.
const MaxPort = 65535

// Key identifies one broker endpoint. Keys are interned: New, Parse and
// ParseJSON return the same *Key for equal (host, port, channel)
// triples, so keys can be compared with == and used as map keys.
type Key struct {
	host    string
	port    int
	channel string
	str     string
}

// keyJSON is the wire form of a Key.
type keyJSON struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Channel string `json:"channel"`
}

var interned sync.Map // canonical string -> *Key

// New builds (or returns the interned) key for host, port and channel.
// Components are trimmed; empty components, channels containing '@' and
// ports outside 1..65535 are rejected.
func New(host string, port int, channel string) (*Key, error) {
	host = strings.TrimSpace(host)
	channel = strings.TrimSpace(channel)
	switch {
	case host == "":
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.new", "host is empty")
	case channel == "":
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.new", "channel is empty")
	case strings.Contains(channel, "@"):
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.new", "channel %q contains '@'", channel)
	case port < 1 || port > MaxPort:
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.new", "port %d out of range 1..%d", port, MaxPort)
	}

	str := channel + "@" + host + ":" + strconv.Itoa(port)
	if k, ok := interned.Load(str); ok {
		return k.(*Key), nil
	}
	k, _ := interned.LoadOrStore(str, &Key{host: host, port: port, channel: channel, str: str})
	return k.(*Key), nil
}

// MustNew is like New but panics on error. Intended for tests and constants.
func MustNew(host string, port int, channel string) *Key {
	k, err := New(host, port, channel)
	if err != nil {
		panic(err)
	}
	return k
}

// Parse parses the canonical "<channel>@<host>:<port>" form. The channel
// runs up to the first '@' and the port follows the last ':'.
func Parse(s string) (*Key, error) {
	s = strings.TrimSpace(s)
	if k, ok := interned.Load(s); ok {
		return k.(*Key), nil
	}

	at := strings.Index(s, "@")
	if at < 0 {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.parse", "key %q is not of the form <channel>@<host>:<port>", s)
	}
	channel, rest := s[:at], s[at+1:]
	colon := strings.LastIndex(rest, ":")
	if colon < 0 {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.parse", "key %q has no port", s)
	}
	host, portStr := rest[:colon], rest[colon+1:]
	if !isDigits(portStr) {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.parse", "key %q has a non-numeric port", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "endpoint.parse", "key %q: %v", s, err)
	}
	return New(host, port, channel)
}

// IsKey reports whether s parses as a key.
func IsKey(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// ParseJSON parses the JSON form {"host","port","channel"}.
func ParseJSON(data []byte) (*Key, error) {
	var kj keyJSON
	if err := json.Unmarshal(data, &kj); err != nil {
		return nil, mqerr.E(mqerr.InvalidArgument, "endpoint.parse_json", err)
	}
	return New(kj.Host, kj.Port, kj.Channel)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Host returns the broker host.
func (k *Key) Host() string { return k.host }

// Port returns the listener port.
func (k *Key) Port() int { return k.port }

// Channel returns the server-connection channel.
func (k *Key) Channel() string { return k.channel }

// String returns "<channel>@<host>:<port>".
func (k *Key) String() string { return k.str }

// ConnectionName returns the "host(port)" form used by the MQ client.
func (k *Key) ConnectionName() string {
	return k.host + "(" + strconv.Itoa(k.port) + ")"
}

// MarshalJSON implements json.Marshaler.
func (k *Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(keyJSON{Host: k.host, Port: k.port, Channel: k.channel})
}

// JSON returns the JSON form as a string.
func (k *Key) JSON() string {
	b, _ := k.MarshalJSON()
	return string(b)
}
