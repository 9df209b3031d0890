package config

import (
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/gaborage/redisbridge/observability"
)

// Config represents the overall application configuration structure.
// The embedded koanf.Koanf instance allows for flexible access to
// keys not explicitly defined in the struct.
type Config struct {
	App      AppConfig  `koanf:"app" json:"app" yaml:"app"`
	Log      LogConfig  `koanf:"log" json:"log" yaml:"log"`
	Redisson Properties `koanf:"redisson" json:"redisson" yaml:"redisson"`

	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability"`

	// k holds the underlying Koanf instance for flexible access to custom configurations
	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Env  string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// Properties is the externalized deployment description of the Redis topology.
// Keys are matched case-insensitively, so both `nodeAddresses` and the environment
// variable REDISSON_NODEADDRESSES populate NodeAddresses.
//
// Durations accept Go duration strings ("3s") or integer milliseconds (3000).
// Zero values mean "not set": the client library default applies.
type Properties struct {
	Mode string `koanf:"mode" json:"mode" yaml:"mode"`

	// Address is the single-server address. When empty, single mode falls back to
	// the only entry of NodeAddresses.
	Address string `koanf:"address" json:"address,omitempty" yaml:"address,omitempty"`
	// NodeAddresses is ordered. In masterslave mode the first entry is the master.
	NodeAddresses []string `koanf:"nodeaddresses" json:"nodeAddresses" yaml:"nodeAddresses" validate:"dive,required"`

	Username   string `koanf:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `koanf:"password" json:"password,omitempty" yaml:"password,omitempty"`
	ClientName string `koanf:"clientname" json:"clientName,omitempty" yaml:"clientName,omitempty"`
	Database   int    `koanf:"database" json:"database" yaml:"database" validate:"min=0"`

	Codec        string `koanf:"codec" json:"codec,omitempty" yaml:"codec,omitempty"`
	KeyCodec     string `koanf:"keycodec" json:"keyCodec,omitempty" yaml:"keyCodec,omitempty"`
	LoadBalancer string `koanf:"loadbalancer" json:"loadBalancer,omitempty" yaml:"loadBalancer,omitempty"`

	ConnectTimeout             time.Duration `koanf:"connecttimeout" json:"connectTimeout" yaml:"connectTimeout" validate:"min=0"`
	Timeout                    time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" validate:"min=0"`
	RetryAttempts              *int          `koanf:"retryattempts" json:"retryAttempts,omitempty" yaml:"retryAttempts,omitempty" validate:"omitempty,min=0"`
	RetryInterval              time.Duration `koanf:"retryinterval" json:"retryInterval" yaml:"retryInterval" validate:"min=0"`
	PingTimeout                time.Duration `koanf:"pingtimeout" json:"pingTimeout" yaml:"pingTimeout" validate:"min=0"`
	IdleConnectionTimeout      time.Duration `koanf:"idleconnectiontimeout" json:"idleConnectionTimeout" yaml:"idleConnectionTimeout" validate:"min=0"`
	PingConnectionInterval     time.Duration `koanf:"pingconnectioninterval" json:"pingConnectionInterval" yaml:"pingConnectionInterval" validate:"min=0"`
	KeepAlive                  *bool         `koanf:"keepalive" json:"keepAlive,omitempty" yaml:"keepAlive,omitempty"`
	TCPNoDelay                 *bool         `koanf:"tcpnodelay" json:"tcpNoDelay,omitempty" yaml:"tcpNoDelay,omitempty"`
	SubscriptionsPerConnection int           `koanf:"subscriptionsperconnection" json:"subscriptionsPerConnection" yaml:"subscriptionsPerConnection" validate:"min=0"`

	SSLKeystore                     string `koanf:"sslkeystore" json:"sslKeystore,omitempty" yaml:"sslKeystore,omitempty"`
	SSLKeystorePassword             string `koanf:"sslkeystorepassword" json:"sslKeystorePassword,omitempty" yaml:"sslKeystorePassword,omitempty"`
	SSLTruststore                   string `koanf:"ssltruststore" json:"sslTruststore,omitempty" yaml:"sslTruststore,omitempty"`
	SSLTruststorePassword           string `koanf:"ssltruststorepassword" json:"sslTruststorePassword,omitempty" yaml:"sslTruststorePassword,omitempty"`
	SSLProvider                     string `koanf:"sslprovider" json:"sslProvider,omitempty" yaml:"sslProvider,omitempty" validate:"omitempty,sslprovider"`
	SSLEnableEndpointIdentification *bool  `koanf:"sslenableendpointidentification" json:"sslEnableEndpointIdentification,omitempty" yaml:"sslEnableEndpointIdentification,omitempty"`

	// Single-server pool.
	ConnectionPoolSize        int `koanf:"connectionpoolsize" json:"connectionPoolSize" yaml:"connectionPoolSize" validate:"min=0"`
	ConnectionMinimumIdleSize int `koanf:"connectionminimumidlesize" json:"connectionMinimumIdleSize" yaml:"connectionMinimumIdleSize" validate:"min=0"`

	// Multi-node pools, per role.
	MasterConnectionPoolSize        int `koanf:"masterconnectionpoolsize" json:"masterConnectionPoolSize" yaml:"masterConnectionPoolSize" validate:"min=0"`
	MasterConnectionMinimumIdleSize int `koanf:"masterconnectionminimumidlesize" json:"masterConnectionMinimumIdleSize" yaml:"masterConnectionMinimumIdleSize" validate:"min=0"`
	SlaveConnectionPoolSize         int `koanf:"slaveconnectionpoolsize" json:"slaveConnectionPoolSize" yaml:"slaveConnectionPoolSize" validate:"min=0"`
	SlaveConnectionMinimumIdleSize  int `koanf:"slaveconnectionminimumidlesize" json:"slaveConnectionMinimumIdleSize" yaml:"slaveConnectionMinimumIdleSize" validate:"min=0"`

	SubscriptionConnectionPoolSize        int `koanf:"subscriptionconnectionpoolsize" json:"subscriptionConnectionPoolSize" yaml:"subscriptionConnectionPoolSize" validate:"min=0"`
	SubscriptionConnectionMinimumIdleSize int `koanf:"subscriptionconnectionminimumidlesize" json:"subscriptionConnectionMinimumIdleSize" yaml:"subscriptionConnectionMinimumIdleSize" validate:"min=0"`

	ScanInterval                    time.Duration `koanf:"scaninterval" json:"scanInterval" yaml:"scanInterval" validate:"min=0"`
	MasterName                      string        `koanf:"mastername" json:"masterName,omitempty" yaml:"masterName,omitempty"`
	ReadMode                        string        `koanf:"readmode" json:"readMode,omitempty" yaml:"readMode,omitempty"`
	SubscriptionMode                string        `koanf:"subscriptionmode" json:"subscriptionMode,omitempty" yaml:"subscriptionMode,omitempty"`
	FailedSlaveReconnectionInterval time.Duration `koanf:"failedslavereconnectioninterval" json:"failedSlaveReconnectionInterval" yaml:"failedSlaveReconnectionInterval" validate:"min=0"`
	FailedSlaveCheckInterval        time.Duration `koanf:"failedslavecheckinterval" json:"failedSlaveCheckInterval" yaml:"failedSlaveCheckInterval" validate:"min=0"`
	DNSMonitoringInterval           time.Duration `koanf:"dnsmonitoringinterval" json:"dnsMonitoringInterval" yaml:"dnsMonitoringInterval" validate:"min=0"`

	// Client-wide settings.
	TransportMode       string        `koanf:"transportmode" json:"transportMode,omitempty" yaml:"transportMode,omitempty" validate:"omitempty,transportmode"`
	Threads             int           `koanf:"threads" json:"threads" yaml:"threads" validate:"min=0"`
	NettyThreads        int           `koanf:"nettythreads" json:"nettyThreads" yaml:"nettyThreads" validate:"min=0"`
	ReferenceEnabled    *bool         `koanf:"referenceenabled" json:"referenceEnabled,omitempty" yaml:"referenceEnabled,omitempty"`
	LockWatchdogTimeout time.Duration `koanf:"lockwatchdogtimeout" json:"lockWatchdogTimeout" yaml:"lockWatchdogTimeout" validate:"min=0"`
	KeepPubSubOrder     *bool         `koanf:"keeppubsuborder" json:"keepPubSubOrder,omitempty" yaml:"keepPubSubOrder,omitempty"`
	DecodeInExecutor    bool          `koanf:"decodeinexecutor" json:"decodeInExecutor" yaml:"decodeInExecutor"`
	UseScriptCache      bool          `koanf:"usescriptcache" json:"useScriptCache" yaml:"useScriptCache"`
	MinCleanUpDelay     time.Duration `koanf:"mincleanupdelay" json:"minCleanUpDelay" yaml:"minCleanUpDelay" validate:"min=0"`
	MaxCleanUpDelay     time.Duration `koanf:"maxcleanupdelay" json:"maxCleanUpDelay" yaml:"maxCleanUpDelay" validate:"min=0"`
}
