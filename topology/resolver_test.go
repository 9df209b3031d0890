package topology

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/redisbridge/balancer"
	"github.com/gaborage/redisbridge/cache"
	"github.com/gaborage/redisbridge/codec"
	"github.com/gaborage/redisbridge/config"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

// fullProperties sets every property to a distinct non-default value.
func fullProperties(mode string, addrs ...string) config.Properties {
	return config.Properties{
		Mode:          mode,
		NodeAddresses: addrs,
		Username:      "app",
		Password:      "s3cret",
		ClientName:    "orders-api",
		Database:      3,
		Codec:         "org.redisson.codec.MsgPackJacksonCodec",
		KeyCodec:      "StringCodec",
		LoadBalancer:  "org.redisson.connection.balancer.RandomLoadBalancer",

		ConnectTimeout:             7 * time.Second,
		Timeout:                    2 * time.Second,
		RetryAttempts:              intPtr(5),
		RetryInterval:              1500 * time.Millisecond,
		PingTimeout:                900 * time.Millisecond,
		IdleConnectionTimeout:      11 * time.Second,
		PingConnectionInterval:     31 * time.Second,
		KeepAlive:                  boolPtr(true),
		TCPNoDelay:                 boolPtr(false),
		SubscriptionsPerConnection: 6,

		SSLKeystore:                     "/etc/redis/client.p12",
		SSLKeystorePassword:             "ks-pass",
		SSLTruststore:                   "/etc/redis/ca.pem",
		SSLTruststorePassword:           "ts-pass",
		SSLProvider:                     "openssl",
		SSLEnableEndpointIdentification: boolPtr(false),

		ConnectionPoolSize:        40,
		ConnectionMinimumIdleSize: 8,

		MasterConnectionPoolSize:        64,
		MasterConnectionMinimumIdleSize: 24,
		SlaveConnectionPoolSize:         48,
		SlaveConnectionMinimumIdleSize:  12,

		SubscriptionConnectionPoolSize:        50,
		SubscriptionConnectionMinimumIdleSize: 2,

		ScanInterval:                    1200 * time.Millisecond,
		MasterName:                      "mymaster",
		ReadMode:                        "master_slave",
		SubscriptionMode:                "slave",
		FailedSlaveReconnectionInterval: 3 * time.Second,
		FailedSlaveCheckInterval:        3 * time.Minute,
		DNSMonitoringInterval:           5 * time.Second,

		TransportMode:       "nio",
		Threads:             16,
		NettyThreads:        32,
		ReferenceEnabled:    boolPtr(false),
		LockWatchdogTimeout: 45 * time.Second,
		KeepPubSubOrder:     boolPtr(false),
		DecodeInExecutor:    true,
		UseScriptCache:      true,
		MinCleanUpDelay:     5 * time.Second,
		MaxCleanUpDelay:     30 * time.Minute,
	}
}

func mustAddress(t *testing.T, raw string) Address {
	t.Helper()
	addr, err := ParseAddress(raw)
	require.NoError(t, err)
	return addr
}

func assertCommon(t *testing.T, cfg *ClientConfig) {
	t.Helper()

	assert.Equal(t, GlobalConfig{
		TransportMode:       "NIO",
		Threads:             16,
		NettyThreads:        32,
		ReferenceEnabled:    boolPtr(false),
		LockWatchdogTimeout: 45 * time.Second,
		KeepPubSubOrder:     boolPtr(false),
		DecodeInExecutor:    true,
		UseScriptCache:      true,
		MinCleanUpDelay:     5 * time.Second,
		MaxCleanUpDelay:     30 * time.Minute,
	}, cfg.Global)

	assert.Equal(t, ServerConfig{
		Username:                   "app",
		Password:                   "s3cret",
		ClientName:                 "orders-api",
		ConnectTimeout:             7 * time.Second,
		Timeout:                    2 * time.Second,
		RetryAttempts:              intPtr(5),
		RetryInterval:              1500 * time.Millisecond,
		PingTimeout:                900 * time.Millisecond,
		IdleConnectionTimeout:      11 * time.Second,
		PingConnectionInterval:     31 * time.Second,
		KeepAlive:                  boolPtr(true),
		TCPNoDelay:                 boolPtr(false),
		SubscriptionsPerConnection: 6,
		TLS: TLSConfig{
			Keystore:                     "/etc/redis/client.p12",
			KeystorePassword:             "ks-pass",
			Truststore:                   "/etc/redis/ca.pem",
			TruststorePassword:           "ts-pass",
			Provider:                     "OPENSSL",
			EnableEndpointIdentification: boolPtr(false),
		},
	}, cfg.Server)

	assert.Equal(t, codec.MsgPack, cfg.CodecName)
	assert.Equal(t, codec.MsgPack, cfg.Codec.Name())
	assert.Equal(t, codec.String, cfg.KeyCodecName)
	assert.Equal(t, codec.String, cfg.KeyCodec.Name())
}

func assertNodeSettings(t *testing.T, s NodeSettings) {
	t.Helper()

	require.NotNil(t, s.LoadBalancer)
	assert.Equal(t, balancer.Random, s.LoadBalancer.Name())
	assert.Equal(t, balancer.Random, s.LoadBalancerName)
	assert.Equal(t, ReadMasterSlave, s.ReadMode)
	assert.Equal(t, SubscribeSlave, s.SubscriptionMode)
	assert.Equal(t, PoolConfig{Size: 64, MinIdle: 24}, s.MasterPool)
	assert.Equal(t, PoolConfig{Size: 48, MinIdle: 12}, s.SlavePool)
	assert.Equal(t, PoolConfig{Size: 50, MinIdle: 2}, s.SubscriptionPool)
	assert.Equal(t, 3*time.Second, s.FailedSlaveReconnectionInterval)
	assert.Equal(t, 3*time.Minute, s.FailedSlaveCheckInterval)
	assert.Equal(t, 5*time.Second, s.DNSMonitoringInterval)
}

// assertOnlyVariant checks the tagged union holds exactly the variant for the mode.
func assertOnlyVariant(t *testing.T, cfg *ClientConfig) {
	t.Helper()

	set := map[Mode]bool{
		Single:      cfg.Single != nil,
		Cluster:     cfg.Cluster != nil,
		Sentinel:    cfg.Sentinel != nil,
		MasterSlave: cfg.MasterSlave != nil,
		Replicated:  cfg.Replicated != nil,
	}
	for mode, present := range set {
		assert.Equal(t, mode == cfg.Mode, present, "variant %s", mode)
	}
}

func TestResolveSingle(t *testing.T) {
	cfg, err := Resolve(fullProperties("single", "10.0.0.1:6379"))
	require.NoError(t, err)

	assert.Equal(t, Single, cfg.Mode)
	assertOnlyVariant(t, cfg)
	assertCommon(t, cfg)
	assert.Nil(t, cfg.Nodes())
	assert.Equal(t, &SingleConfig{
		Address:               mustAddress(t, "10.0.0.1:6379"),
		Database:              3,
		ConnectionPool:        PoolConfig{Size: 40, MinIdle: 8},
		SubscriptionPool:      PoolConfig{Size: 50, MinIdle: 2},
		DNSMonitoringInterval: 5 * time.Second,
	}, cfg.Single)
}

func TestResolveSingleAddressField(t *testing.T) {
	props := fullProperties("single", "ignored-a:1", "ignored-b:2")
	props.Address = "rediss://primary:6380"

	cfg, err := Resolve(props)
	require.NoError(t, err)
	assert.Equal(t, "rediss://primary:6380", cfg.Single.Address.URL)
	assert.True(t, cfg.Single.Address.TLS)
	assert.Equal(t, []Address{cfg.Single.Address}, cfg.Addresses())
}

func TestResolveCluster(t *testing.T) {
	cfg, err := Resolve(fullProperties("cluster", "10.0.0.1:7000", "redis://10.0.0.2:7000", "10.0.0.3:7000"))
	require.NoError(t, err)

	assert.Equal(t, Cluster, cfg.Mode)
	assertOnlyVariant(t, cfg)
	assertCommon(t, cfg)
	assertNodeSettings(t, cfg.Cluster.NodeSettings)
	assert.Same(t, &cfg.Cluster.NodeSettings, cfg.Nodes())
	assert.Equal(t, []Address{
		mustAddress(t, "10.0.0.1:7000"),
		mustAddress(t, "10.0.0.2:7000"),
		mustAddress(t, "10.0.0.3:7000"),
	}, cfg.Cluster.Nodes)
	assert.Equal(t, 1200*time.Millisecond, cfg.Cluster.ScanInterval)
}

func TestResolveSentinel(t *testing.T) {
	cfg, err := Resolve(fullProperties("sentinel", "s1:26379", "s2:26379", "s3:26379"))
	require.NoError(t, err)

	assert.Equal(t, Sentinel, cfg.Mode)
	assertOnlyVariant(t, cfg)
	assertCommon(t, cfg)
	assertNodeSettings(t, cfg.Sentinel.NodeSettings)
	assert.Equal(t, "mymaster", cfg.Sentinel.MasterName)
	assert.Equal(t, 3, cfg.Sentinel.Database)
	assert.Equal(t, 1200*time.Millisecond, cfg.Sentinel.ScanInterval)
	assert.Len(t, cfg.Sentinel.Sentinels, 3)
	assert.Equal(t, "redis://s1:26379", cfg.Sentinel.Sentinels[0].URL)
}

func TestResolveMasterSlave(t *testing.T) {
	cfg, err := Resolve(fullProperties("masterslave", "host1:6379", "host2:6379", "host3:6379"))
	require.NoError(t, err)

	assert.Equal(t, MasterSlave, cfg.Mode)
	assertOnlyVariant(t, cfg)
	assertCommon(t, cfg)
	assertNodeSettings(t, cfg.MasterSlave.NodeSettings)
	assert.Equal(t, 3, cfg.MasterSlave.Database)

	assert.Equal(t, "host1:6379", cfg.MasterSlave.Master.HostPort())
	replicas := make([]string, 0, len(cfg.MasterSlave.Slaves))
	for _, s := range cfg.MasterSlave.Slaves {
		replicas = append(replicas, s.HostPort())
	}
	assert.ElementsMatch(t, []string{"host2:6379", "host3:6379"}, replicas)

	addrs := cfg.Addresses()
	require.Len(t, addrs, 3)
	assert.Equal(t, "host1:6379", addrs[0].HostPort())
}

func TestResolveMasterSlaveWithoutReplicas(t *testing.T) {
	cfg, err := Resolve(config.Properties{Mode: "masterslave", NodeAddresses: []string{"host1:6379"}})
	require.NoError(t, err)
	assert.Equal(t, "host1:6379", cfg.MasterSlave.Master.HostPort())
	assert.Empty(t, cfg.MasterSlave.Slaves)
}

func TestResolveReplicated(t *testing.T) {
	cfg, err := Resolve(fullProperties("replicated", "node1:6379", "node2:6379"))
	require.NoError(t, err)

	assert.Equal(t, Replicated, cfg.Mode)
	assertOnlyVariant(t, cfg)
	assertCommon(t, cfg)
	assertNodeSettings(t, cfg.Replicated.NodeSettings)
	assert.Equal(t, 3, cfg.Replicated.Database)
	assert.Equal(t, 1200*time.Millisecond, cfg.Replicated.ScanInterval)
	assert.Len(t, cfg.Replicated.Nodes, 2)
}

func TestResolveMinimalDefaults(t *testing.T) {
	for _, mode := range Modes {
		t.Run(string(mode), func(t *testing.T) {
			props := config.Properties{Mode: string(mode), NodeAddresses: []string{"h:6379"}, MasterName: "m"}

			cfg, err := Resolve(props)
			require.NoError(t, err)
			assert.Equal(t, mode, cfg.Mode)
			assertOnlyVariant(t, cfg)
			assert.Equal(t, DefaultCodec, cfg.CodecName)
			assert.Equal(t, DefaultKeyCodec, cfg.KeyCodecName)
			assert.Nil(t, cfg.Server.RetryAttempts, "unset fields keep library defaults")
			assert.Nil(t, cfg.Server.TCPNoDelay)
			assert.Zero(t, cfg.Server.Timeout)

			if nodes := cfg.Nodes(); nodes != nil {
				assert.Equal(t, DefaultLoadBalancer, nodes.LoadBalancerName)
				assert.Empty(t, nodes.ReadMode)
			}
		})
	}
}

func TestResolveModeIsCaseInsensitive(t *testing.T) {
	cfg, err := Resolve(config.Properties{Mode: " Cluster ", NodeAddresses: []string{"h:7000"}})
	require.NoError(t, err)
	assert.Equal(t, Cluster, cfg.Mode)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name  string
		props config.Properties
		field string
	}{
		{
			name:  "unknown_mode",
			props: config.Properties{Mode: "unknown", NodeAddresses: []string{"h:6379"}},
			field: "redisson.mode",
		},
		{
			name:  "empty_mode",
			props: config.Properties{NodeAddresses: []string{"h:6379"}},
			field: "redisson.mode",
		},
		{
			name:  "cluster_without_addresses",
			props: config.Properties{Mode: "cluster"},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "cluster_empty_addresses",
			props: config.Properties{Mode: "cluster", NodeAddresses: []string{}},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "replicated_without_addresses",
			props: config.Properties{Mode: "replicated"},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "single_without_address",
			props: config.Properties{Mode: "single"},
			field: "redisson.address",
		},
		{
			name:  "single_with_two_addresses",
			props: config.Properties{Mode: "single", NodeAddresses: []string{"a:1", "b:2"}},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "single_malformed_address",
			props: config.Properties{Mode: "single", Address: "no-port"},
			field: "redisson.address",
		},
		{
			name:  "cluster_malformed_address",
			props: config.Properties{Mode: "cluster", NodeAddresses: []string{"a:1", "b:port"}},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "masterslave_mixed_schemes",
			props: config.Properties{Mode: "masterslave", NodeAddresses: []string{"redis://a:6379", "rediss://b:6380"}},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "cluster_mixed_schemes",
			props: config.Properties{Mode: "cluster", NodeAddresses: []string{"rediss://a:6380", "b:6379"}},
			field: "redisson.nodeaddresses",
		},
		{
			name:  "unknown_load_balancer",
			props: config.Properties{Mode: "cluster", NodeAddresses: []string{"a:1"}, LoadBalancer: "com.example.WeightedBalancer"},
			field: "redisson.loadbalancer",
		},
		{
			name:  "unknown_codec",
			props: config.Properties{Mode: "single", Address: "a:1", Codec: "org.redisson.codec.FstCodec"},
			field: "redisson.codec",
		},
		{
			name:  "unknown_key_codec",
			props: config.Properties{Mode: "single", Address: "a:1", KeyCodec: "snappy"},
			field: "redisson.keycodec",
		},
		{
			name:  "unknown_read_mode",
			props: config.Properties{Mode: "masterslave", NodeAddresses: []string{"a:1"}, ReadMode: "REPLICA"},
			field: "redisson.readmode",
		},
		{
			name:  "unknown_subscription_mode",
			props: config.Properties{Mode: "masterslave", NodeAddresses: []string{"a:1"}, SubscriptionMode: "ANY"},
			field: "redisson.subscriptionmode",
		},
		{
			name:  "sentinel_without_master_name",
			props: config.Properties{Mode: "sentinel", NodeAddresses: []string{"s:26379"}},
			field: "redisson.mastername",
		},
		{
			name:  "invalid_property",
			props: config.Properties{Mode: "single", Address: "a:1", Database: -1},
			field: "redisson.database",
		},
		{
			name:  "blank_address_element",
			props: config.Properties{Mode: "cluster", NodeAddresses: []string{"a:1", ""}},
			field: "redisson.nodeaddresses[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Resolve(tt.props)
			require.Error(t, err)
			assert.Nil(t, cfg)

			var cfgErr *cache.ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected *cache.ConfigError, got %T", err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestResolveWrapsRegistryErrors(t *testing.T) {
	_, err := Resolve(config.Properties{Mode: "cluster", NodeAddresses: []string{"a:1"}, LoadBalancer: "nope"})
	assert.True(t, errors.Is(err, balancer.ErrUnknownLoadBalancer))

	_, err = Resolve(config.Properties{Mode: "single", Address: "a:1", Codec: "nope"})
	assert.True(t, errors.Is(err, codec.ErrUnknownCodec))
}

func TestResolveIsDeterministicAndDetached(t *testing.T) {
	props := fullProperties("cluster", "a:1", "b:2")

	first, err := Resolve(props)
	require.NoError(t, err)
	second, err := Resolve(props)
	require.NoError(t, err)

	assert.Equal(t, first.Redacted(), second.Redacted())
	assert.Equal(t, first.Cluster.Nodes, second.Cluster.Nodes)

	props.NodeAddresses[0] = "mutated:9"
	*props.RetryAttempts = 99
	assert.Equal(t, "a:1", first.Cluster.Nodes[0].HostPort())
	assert.Equal(t, 5, *first.Server.RetryAttempts)
}

func TestRedacted(t *testing.T) {
	cfg, err := Resolve(fullProperties("single", "a:1"))
	require.NoError(t, err)

	redacted := cfg.Redacted()
	assert.Equal(t, "****", redacted.Server.Password)
	assert.Equal(t, "****", redacted.Server.TLS.KeystorePassword)
	assert.Equal(t, "****", redacted.Server.TLS.TruststorePassword)
	assert.Equal(t, "s3cret", cfg.Server.Password, "original is untouched")

	empty := (&ClientConfig{}).Redacted()
	assert.Empty(t, empty.Server.Password)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		parsed, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	_, err := ParseMode("standalone")
	assert.Error(t, err)
}
