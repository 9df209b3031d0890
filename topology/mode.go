package topology

import (
	"fmt"
	"strings"
)

// Mode is the deployment shape of the Redis backend.
type Mode string

// Supported topologies.
const (
	Single      Mode = "single"
	Cluster     Mode = "cluster"
	Sentinel    Mode = "sentinel"
	MasterSlave Mode = "masterslave"
	Replicated  Mode = "replicated"
)

// Modes lists every supported topology in declaration order.
var Modes = []Mode{Single, Cluster, Sentinel, MasterSlave, Replicated}

// ParseMode converts a property value into a Mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case Single, Cluster, Sentinel, MasterSlave, Replicated:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string { return string(m) }

// ReadMode selects which nodes serve read commands in multi-node topologies.
type ReadMode string

// Read modes. The empty ReadMode keeps the client library default (reads go to masters).
const (
	ReadSlave       ReadMode = "SLAVE"
	ReadMaster      ReadMode = "MASTER"
	ReadMasterSlave ReadMode = "MASTER_SLAVE"
)

// ParseReadMode converts a property value into a ReadMode. Empty input yields the empty ReadMode.
func ParseReadMode(s string) (ReadMode, error) {
	rm := ReadMode(strings.ToUpper(strings.TrimSpace(s)))
	switch rm {
	case "", ReadSlave, ReadMaster, ReadMasterSlave:
		return rm, nil
	default:
		return "", fmt.Errorf("unknown read mode %q", s)
	}
}

// SubscriptionMode selects which nodes carry pub/sub connections.
type SubscriptionMode string

// Subscription modes.
const (
	SubscribeSlave  SubscriptionMode = "SLAVE"
	SubscribeMaster SubscriptionMode = "MASTER"
)

// ParseSubscriptionMode converts a property value into a SubscriptionMode.
func ParseSubscriptionMode(s string) (SubscriptionMode, error) {
	sm := SubscriptionMode(strings.ToUpper(strings.TrimSpace(s)))
	switch sm {
	case "", SubscribeSlave, SubscribeMaster:
		return sm, nil
	default:
		return "", fmt.Errorf("unknown subscription mode %q", s)
	}
}
