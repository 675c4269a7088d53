package endpoint

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// Protocol defaults, in seconds.
const (
	DefaultProtocolWait   = 30
	DefaultProtocolExpiry = 30
)

// SynthesizedPrefix prefixes the names of descriptors created on demand.
const SynthesizedPrefix = "Pool#"

var poolSerial atomic.Int64

// Descriptor describes one sub-pool: the endpoint it connects to and the
// PCF wait/expiry applied to commands on its connections.
type Descriptor struct {
	PoolName string `json:"poolName"`
	Key      *Key   `json:"key"`
	// ProtocolWait bounds one command round-trip, in seconds.
	ProtocolWait int `json:"pcfWait"`
	// ProtocolExpiry is the expiry set on command messages, in seconds.
	ProtocolExpiry int `json:"pcfExpiry"`
}

// NewDescriptor builds a descriptor. Non-positive wait and expiry fall back
// to the defaults.
func NewDescriptor(name string, key *Key, wait, expiry int) Descriptor {
	if wait <= 0 {
		wait = DefaultProtocolWait
	}
	if expiry <= 0 {
		expiry = DefaultProtocolExpiry
	}
	return Descriptor{
		PoolName:       strings.TrimSpace(name),
		Key:            key,
		ProtocolWait:   wait,
		ProtocolExpiry: expiry,
	}
}

// Synthesize builds a descriptor for a key that has no configured pool.
func Synthesize(key *Key) Descriptor {
	name := SynthesizedPrefix + strconv.FormatInt(poolSerial.Add(1), 10)
	return NewDescriptor(name, key, 0, 0)
}

// Synthesized reports whether the descriptor was created on demand.
func (d Descriptor) Synthesized() bool {
	return strings.HasPrefix(d.PoolName, SynthesizedPrefix)
}
