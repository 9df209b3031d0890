// Package topology turns Redis deployment properties into a resolved, library-agnostic
// client configuration. Resolution is deterministic and performs no I/O.
package topology

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gaborage/redisbridge/balancer"
	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/codec"
	"github.com/gaborage/redisbridge/config"
)

// Defaults applied when the corresponding identifier is not set.
const (
	DefaultCodec        = codec.JSON
	DefaultKeyCodec     = codec.String
	DefaultLoadBalancer = balancer.RoundRobin
)

// Property keys used in configuration errors.
const (
	fieldMode             = "redisson.mode"
	fieldAddress          = "redisson.address"
	fieldNodeAddresses    = "redisson.nodeaddresses"
	fieldCodec            = "redisson.codec"
	fieldKeyCodec         = "redisson.keycodec"
	fieldLoadBalancer     = "redisson.loadbalancer"
	fieldReadMode         = "redisson.readmode"
	fieldSubscriptionMode = "redisson.subscriptionmode"
	fieldMasterName       = "redisson.mastername"
	fieldProperties       = "redisson"
)

// Resolve validates props and maps them onto the configuration of the selected topology.
// Every failure is a *cache.ConfigError naming the offending property.
func Resolve(props config.Properties) (*ClientConfig, error) {
	if err := props.Validate(); err != nil {
		return nil, cache.NewConfigError(propertyField(err), "invalid property", err)
	}

	mode, err := ParseMode(props.Mode)
	if err != nil {
		return nil, cache.NewConfigError(fieldMode, fmt.Sprintf("must be one of: %s", modeList()), err)
	}

	cfg := &ClientConfig{
		Mode:   mode,
		Global: resolveGlobal(props),
		Server: resolveServer(props),
	}

	if cfg.CodecName, cfg.Codec, err = resolveCodec(props.Codec, DefaultCodec, fieldCodec); err != nil {
		return nil, err
	}
	if cfg.KeyCodecName, cfg.KeyCodec, err = resolveCodec(props.KeyCodec, DefaultKeyCodec, fieldKeyCodec); err != nil {
		return nil, err
	}

	switch mode {
	case Single:
		cfg.Single, err = resolveSingle(props)
	case Cluster:
		cfg.Cluster, err = resolveCluster(props)
	case Sentinel:
		cfg.Sentinel, err = resolveSentinel(props)
	case MasterSlave:
		cfg.MasterSlave, err = resolveMasterSlave(props)
	case Replicated:
		cfg.Replicated, err = resolveReplicated(props)
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolveSingle(props config.Properties) (*SingleConfig, error) {
	raw := strings.TrimSpace(props.Address)
	field := fieldAddress
	if raw == "" {
		field = fieldNodeAddresses
		switch len(props.NodeAddresses) {
		case 0:
			return nil, cache.NewConfigError(fieldAddress, "an address is required for single mode", nil)
		case 1:
			raw = props.NodeAddresses[0]
		default:
			return nil, cache.NewConfigError(fieldNodeAddresses,
				fmt.Sprintf("single mode accepts exactly one address, got %d", len(props.NodeAddresses)), nil)
		}
	}

	addr, err := ParseAddress(raw)
	if err != nil {
		return nil, cache.NewConfigError(field, "malformed address", err)
	}

	return &SingleConfig{
		Address:  addr,
		Database: props.Database,
		ConnectionPool: PoolConfig{
			Size:    props.ConnectionPoolSize,
			MinIdle: props.ConnectionMinimumIdleSize,
		},
		SubscriptionPool: PoolConfig{
			Size:    props.SubscriptionConnectionPoolSize,
			MinIdle: props.SubscriptionConnectionMinimumIdleSize,
		},
		DNSMonitoringInterval: props.DNSMonitoringInterval,
	}, nil
}

func resolveCluster(props config.Properties) (*ClusterConfig, error) {
	settings, nodes, err := resolveNodes(props, Cluster)
	if err != nil {
		return nil, err
	}
	return &ClusterConfig{
		NodeSettings: settings,
		Nodes:        nodes,
		ScanInterval: props.ScanInterval,
	}, nil
}

func resolveSentinel(props config.Properties) (*SentinelConfig, error) {
	settings, nodes, err := resolveNodes(props, Sentinel)
	if err != nil {
		return nil, err
	}

	masterName := strings.TrimSpace(props.MasterName)
	if masterName == "" {
		return nil, cache.NewConfigError(fieldMasterName, "a master name is required for sentinel mode", nil)
	}

	return &SentinelConfig{
		NodeSettings: settings,
		Sentinels:    nodes,
		MasterName:   masterName,
		Database:     props.Database,
		ScanInterval: props.ScanInterval,
	}, nil
}

// resolveMasterSlave assigns the master role to the first address and the replica role
// to every following one. Callers must list the master first.
func resolveMasterSlave(props config.Properties) (*MasterSlaveConfig, error) {
	settings, nodes, err := resolveNodes(props, MasterSlave)
	if err != nil {
		return nil, err
	}
	return &MasterSlaveConfig{
		NodeSettings: settings,
		Master:       nodes[0],
		Slaves:       nodes[1:],
		Database:     props.Database,
	}, nil
}

func resolveReplicated(props config.Properties) (*ReplicatedConfig, error) {
	settings, nodes, err := resolveNodes(props, Replicated)
	if err != nil {
		return nil, err
	}
	return &ReplicatedConfig{
		NodeSettings: settings,
		Nodes:        nodes,
		Database:     props.Database,
		ScanInterval: props.ScanInterval,
	}, nil
}

// resolveNodes handles the fields every multi-node topology shares. The returned
// address slice is never empty.
func resolveNodes(props config.Properties, mode Mode) (NodeSettings, []Address, error) {
	if len(props.NodeAddresses) == 0 {
		return NodeSettings{}, nil, cache.NewConfigError(fieldNodeAddresses,
			fmt.Sprintf("at least one address is required for %s mode", mode), nil)
	}

	nodes, err := parseAddresses(props.NodeAddresses)
	if err != nil {
		return NodeSettings{}, nil, cache.NewConfigError(fieldNodeAddresses, "malformed address", err)
	}
	if mixedSchemes(nodes) {
		return NodeSettings{}, nil, cache.NewConfigError(fieldNodeAddresses,
			"redis:// and rediss:// addresses cannot be mixed", nil)
	}

	lbName := strings.TrimSpace(props.LoadBalancer)
	if lbName == "" {
		lbName = DefaultLoadBalancer
	}
	lb, err := balancer.Lookup(lbName)
	if err != nil {
		return NodeSettings{}, nil, cache.NewConfigError(fieldLoadBalancer, "unresolvable load balancer", err)
	}

	readMode, err := ParseReadMode(props.ReadMode)
	if err != nil {
		return NodeSettings{}, nil, cache.NewConfigError(fieldReadMode, "must be one of: SLAVE, MASTER, MASTER_SLAVE", err)
	}

	subMode, err := ParseSubscriptionMode(props.SubscriptionMode)
	if err != nil {
		return NodeSettings{}, nil, cache.NewConfigError(fieldSubscriptionMode, "must be one of: SLAVE, MASTER", err)
	}

	return NodeSettings{
		LoadBalancer:     lb,
		LoadBalancerName: lb.Name(),
		ReadMode:         readMode,
		SubscriptionMode: subMode,
		MasterPool: PoolConfig{
			Size:    props.MasterConnectionPoolSize,
			MinIdle: props.MasterConnectionMinimumIdleSize,
		},
		SlavePool: PoolConfig{
			Size:    props.SlaveConnectionPoolSize,
			MinIdle: props.SlaveConnectionMinimumIdleSize,
		},
		SubscriptionPool: PoolConfig{
			Size:    props.SubscriptionConnectionPoolSize,
			MinIdle: props.SubscriptionConnectionMinimumIdleSize,
		},
		FailedSlaveReconnectionInterval: props.FailedSlaveReconnectionInterval,
		FailedSlaveCheckInterval:        props.FailedSlaveCheckInterval,
		DNSMonitoringInterval:           props.DNSMonitoringInterval,
	}, nodes, nil
}

func mixedSchemes(nodes []Address) bool {
	for _, n := range nodes[1:] {
		if n.TLS != nodes[0].TLS {
			return true
		}
	}
	return false
}

func resolveServer(props config.Properties) ServerConfig {
	return ServerConfig{
		Username:                   props.Username,
		Password:                   props.Password,
		ClientName:                 props.ClientName,
		ConnectTimeout:             props.ConnectTimeout,
		Timeout:                    props.Timeout,
		RetryAttempts:              copyPtr(props.RetryAttempts),
		RetryInterval:              props.RetryInterval,
		PingTimeout:                props.PingTimeout,
		IdleConnectionTimeout:      props.IdleConnectionTimeout,
		PingConnectionInterval:     props.PingConnectionInterval,
		KeepAlive:                  copyPtr(props.KeepAlive),
		TCPNoDelay:                 copyPtr(props.TCPNoDelay),
		SubscriptionsPerConnection: props.SubscriptionsPerConnection,
		TLS: TLSConfig{
			Keystore:                     props.SSLKeystore,
			KeystorePassword:             props.SSLKeystorePassword,
			Truststore:                   props.SSLTruststore,
			TruststorePassword:           props.SSLTruststorePassword,
			Provider:                     strings.ToUpper(strings.TrimSpace(props.SSLProvider)),
			EnableEndpointIdentification: copyPtr(props.SSLEnableEndpointIdentification),
		},
	}
}

func resolveGlobal(props config.Properties) GlobalConfig {
	return GlobalConfig{
		TransportMode:       strings.ToUpper(strings.TrimSpace(props.TransportMode)),
		Threads:             props.Threads,
		NettyThreads:        props.NettyThreads,
		ReferenceEnabled:    copyPtr(props.ReferenceEnabled),
		LockWatchdogTimeout: props.LockWatchdogTimeout,
		KeepPubSubOrder:     copyPtr(props.KeepPubSubOrder),
		DecodeInExecutor:    props.DecodeInExecutor,
		UseScriptCache:      props.UseScriptCache,
		MinCleanUpDelay:     props.MinCleanUpDelay,
		MaxCleanUpDelay:     props.MaxCleanUpDelay,
	}
}

func resolveCodec(name, fallback, field string) (string, codec.Codec, error) {
	if strings.TrimSpace(name) == "" {
		name = fallback
	}
	c, err := codec.Lookup(name)
	if err != nil {
		return "", nil, cache.NewConfigError(field, "unresolvable codec", err)
	}
	return c.Name(), c, nil
}

func propertyField(err error) string {
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Field != "" {
		return cfgErr.Field
	}
	return fieldProperties
}

func modeList() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
