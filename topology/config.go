package topology

import (
	"time"

	"github.com/gaborage/redisbridge/balancer"
	"github.com/gaborage/redisbridge/codec"
)

const redactedSecret = "****"

// ClientConfig is the resolved configuration for exactly one topology.
// Exactly one of Single, Cluster, Sentinel, MasterSlave or Replicated is set, matching Mode.
// A ClientConfig is not modified after Resolve returns it.
type ClientConfig struct {
	Mode   Mode         `yaml:"mode" json:"mode"`
	Global GlobalConfig `yaml:"global" json:"global"`
	Server ServerConfig `yaml:"server" json:"server"`

	CodecName    string      `yaml:"codec" json:"codec"`
	KeyCodecName string      `yaml:"keyCodec" json:"keyCodec"`
	Codec        codec.Codec `yaml:"-" json:"-"`
	KeyCodec     codec.Codec `yaml:"-" json:"-"`

	Single      *SingleConfig      `yaml:"single,omitempty" json:"single,omitempty"`
	Cluster     *ClusterConfig     `yaml:"cluster,omitempty" json:"cluster,omitempty"`
	Sentinel    *SentinelConfig    `yaml:"sentinel,omitempty" json:"sentinel,omitempty"`
	MasterSlave *MasterSlaveConfig `yaml:"masterSlave,omitempty" json:"masterSlave,omitempty"`
	Replicated  *ReplicatedConfig  `yaml:"replicated,omitempty" json:"replicated,omitempty"`
}

// GlobalConfig carries client-wide settings that do not depend on the topology.
type GlobalConfig struct {
	TransportMode       string        `yaml:"transportMode,omitempty" json:"transportMode,omitempty"`
	Threads             int           `yaml:"threads,omitempty" json:"threads,omitempty"`
	NettyThreads        int           `yaml:"nettyThreads,omitempty" json:"nettyThreads,omitempty"`
	ReferenceEnabled    *bool         `yaml:"referenceEnabled,omitempty" json:"referenceEnabled,omitempty"`
	LockWatchdogTimeout time.Duration `yaml:"lockWatchdogTimeout,omitempty" json:"lockWatchdogTimeout,omitempty"`
	KeepPubSubOrder     *bool         `yaml:"keepPubSubOrder,omitempty" json:"keepPubSubOrder,omitempty"`
	DecodeInExecutor    bool          `yaml:"decodeInExecutor" json:"decodeInExecutor"`
	UseScriptCache      bool          `yaml:"useScriptCache" json:"useScriptCache"`
	MinCleanUpDelay     time.Duration `yaml:"minCleanUpDelay,omitempty" json:"minCleanUpDelay,omitempty"`
	MaxCleanUpDelay     time.Duration `yaml:"maxCleanUpDelay,omitempty" json:"maxCleanUpDelay,omitempty"`
}

// ServerConfig holds connection settings shared by every node of every topology.
type ServerConfig struct {
	Username                   string        `yaml:"username,omitempty" json:"username,omitempty"`
	Password                   string        `yaml:"password,omitempty" json:"password,omitempty"`
	ClientName                 string        `yaml:"clientName,omitempty" json:"clientName,omitempty"`
	ConnectTimeout             time.Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`
	Timeout                    time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryAttempts              *int          `yaml:"retryAttempts,omitempty" json:"retryAttempts,omitempty"`
	RetryInterval              time.Duration `yaml:"retryInterval,omitempty" json:"retryInterval,omitempty"`
	PingTimeout                time.Duration `yaml:"pingTimeout,omitempty" json:"pingTimeout,omitempty"`
	IdleConnectionTimeout      time.Duration `yaml:"idleConnectionTimeout,omitempty" json:"idleConnectionTimeout,omitempty"`
	PingConnectionInterval     time.Duration `yaml:"pingConnectionInterval,omitempty" json:"pingConnectionInterval,omitempty"`
	KeepAlive                  *bool         `yaml:"keepAlive,omitempty" json:"keepAlive,omitempty"`
	TCPNoDelay                 *bool         `yaml:"tcpNoDelay,omitempty" json:"tcpNoDelay,omitempty"`
	SubscriptionsPerConnection int           `yaml:"subscriptionsPerConnection,omitempty" json:"subscriptionsPerConnection,omitempty"`
	TLS                        TLSConfig     `yaml:"tls" json:"tls"`
}

// TLSConfig holds keystore and truststore material. Keystores are PKCS#12 files or
// PEM files holding a certificate chain and private key; truststores are PEM bundles
// or PKCS#12 files.
type TLSConfig struct {
	Keystore                     string `yaml:"keystore,omitempty" json:"keystore,omitempty"`
	KeystorePassword             string `yaml:"keystorePassword,omitempty" json:"keystorePassword,omitempty"`
	Truststore                   string `yaml:"truststore,omitempty" json:"truststore,omitempty"`
	TruststorePassword           string `yaml:"truststorePassword,omitempty" json:"truststorePassword,omitempty"`
	Provider                     string `yaml:"provider,omitempty" json:"provider,omitempty"`
	EnableEndpointIdentification *bool  `yaml:"enableEndpointIdentification,omitempty" json:"enableEndpointIdentification,omitempty"`
}

// PoolConfig sizes one connection pool. Zero keeps the library default.
type PoolConfig struct {
	Size    int `yaml:"size,omitempty" json:"size,omitempty"`
	MinIdle int `yaml:"minIdle,omitempty" json:"minIdle,omitempty"`
}

// SingleConfig describes one standalone node.
type SingleConfig struct {
	Address               Address       `yaml:"address" json:"address"`
	Database              int           `yaml:"database" json:"database"`
	ConnectionPool        PoolConfig    `yaml:"connectionPool" json:"connectionPool"`
	SubscriptionPool      PoolConfig    `yaml:"subscriptionPool" json:"subscriptionPool"`
	DNSMonitoringInterval time.Duration `yaml:"dnsMonitoringInterval,omitempty" json:"dnsMonitoringInterval,omitempty"`
}

// NodeSettings holds the settings common to every multi-node topology.
type NodeSettings struct {
	LoadBalancer     balancer.LoadBalancer `yaml:"-" json:"-"`
	LoadBalancerName string                `yaml:"loadBalancer" json:"loadBalancer"`
	ReadMode         ReadMode              `yaml:"readMode,omitempty" json:"readMode,omitempty"`
	SubscriptionMode SubscriptionMode      `yaml:"subscriptionMode,omitempty" json:"subscriptionMode,omitempty"`

	MasterPool       PoolConfig `yaml:"masterPool" json:"masterPool"`
	SlavePool        PoolConfig `yaml:"slavePool" json:"slavePool"`
	SubscriptionPool PoolConfig `yaml:"subscriptionPool" json:"subscriptionPool"`

	FailedSlaveReconnectionInterval time.Duration `yaml:"failedSlaveReconnectionInterval,omitempty" json:"failedSlaveReconnectionInterval,omitempty"`
	FailedSlaveCheckInterval        time.Duration `yaml:"failedSlaveCheckInterval,omitempty" json:"failedSlaveCheckInterval,omitempty"`
	DNSMonitoringInterval           time.Duration `yaml:"dnsMonitoringInterval,omitempty" json:"dnsMonitoringInterval,omitempty"`
}

// ClusterConfig describes a Redis Cluster. Nodes are seed nodes; the slot map is discovered.
type ClusterConfig struct {
	NodeSettings `yaml:",inline"`
	Nodes        []Address     `yaml:"nodes" json:"nodes"`
	ScanInterval time.Duration `yaml:"scanInterval,omitempty" json:"scanInterval,omitempty"`
}

// SentinelConfig describes a Sentinel-supervised master and its replicas.
type SentinelConfig struct {
	NodeSettings `yaml:",inline"`
	Sentinels    []Address     `yaml:"sentinels" json:"sentinels"`
	MasterName   string        `yaml:"masterName" json:"masterName"`
	Database     int           `yaml:"database" json:"database"`
	ScanInterval time.Duration `yaml:"scanInterval,omitempty" json:"scanInterval,omitempty"`
}

// MasterSlaveConfig describes a fixed master with statically known replicas.
type MasterSlaveConfig struct {
	NodeSettings `yaml:",inline"`
	Master       Address   `yaml:"master" json:"master"`
	Slaves       []Address `yaml:"slaves" json:"slaves"`
	Database     int       `yaml:"database" json:"database"`
}

// ReplicatedConfig describes a cloud-managed replication group whose master is
// discovered at connect time.
type ReplicatedConfig struct {
	NodeSettings `yaml:",inline"`
	Nodes        []Address     `yaml:"nodes" json:"nodes"`
	Database     int           `yaml:"database" json:"database"`
	// ScanInterval is how often node roles are re-probed to follow a master
	// change. Zero probes only once, at connect time.
	ScanInterval time.Duration `yaml:"scanInterval,omitempty" json:"scanInterval,omitempty"`
}

// Addresses returns every configured node address in declaration order.
func (c *ClientConfig) Addresses() []Address {
	switch c.Mode {
	case Single:
		if c.Single != nil {
			return []Address{c.Single.Address}
		}
	case Cluster:
		if c.Cluster != nil {
			return append([]Address(nil), c.Cluster.Nodes...)
		}
	case Sentinel:
		if c.Sentinel != nil {
			return append([]Address(nil), c.Sentinel.Sentinels...)
		}
	case MasterSlave:
		if c.MasterSlave != nil {
			return append([]Address{c.MasterSlave.Master}, c.MasterSlave.Slaves...)
		}
	case Replicated:
		if c.Replicated != nil {
			return append([]Address(nil), c.Replicated.Nodes...)
		}
	}
	return nil
}

// Nodes returns the shared multi-node settings, or nil in single mode.
func (c *ClientConfig) Nodes() *NodeSettings {
	switch {
	case c.Cluster != nil:
		return &c.Cluster.NodeSettings
	case c.Sentinel != nil:
		return &c.Sentinel.NodeSettings
	case c.MasterSlave != nil:
		return &c.MasterSlave.NodeSettings
	case c.Replicated != nil:
		return &c.Replicated.NodeSettings
	default:
		return nil
	}
}

// Redacted returns a copy with passwords masked, suitable for printing.
func (c *ClientConfig) Redacted() ClientConfig {
	out := *c
	out.Server.Password = redact(out.Server.Password)
	out.Server.TLS.KeystorePassword = redact(out.Server.TLS.KeystorePassword)
	out.Server.TLS.TruststorePassword = redact(out.Server.TLS.TruststorePassword)
	return out
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redactedSecret
}
