// Package config loads the application and Redis topology configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFile is the base configuration file read by Load.
const DefaultFile = "config.yaml"

// roots lists the top-level sections environment variables may populate.
var roots = []string{"app.", "log.", "redisson.", "observability."}

// Options controls where LoadFrom reads configuration from.
type Options struct {
	// File is the base YAML file. Empty means DefaultFile. A missing file is not an error.
	File string
	// Data, when set, replaces File as the base YAML document. Environment overlay
	// files are still looked up next to File.
	Data []byte
	// EnvPrefix restricts environment variables to those starting with the prefix,
	// which is stripped before mapping (e.g. "RB_" turns RB_REDISSON_MODE into redisson.mode).
	EnvPrefix string
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration files
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	return LoadFrom(Options{})
}

// LoadFrom is Load with an explicit file location and environment prefix.
func LoadFrom(opts Options) (*Config, error) {
	if opts.File == "" {
		opts.File = DefaultFile
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if opts.Data != nil {
		if err := loadYAML(k, rawbytes.Provider(opts.Data)); err != nil {
			return nil, fmt.Errorf("failed to parse inline config: %w", err)
		}
	} else if err := loadFile(k, opts.File); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", opts.File, err)
	}

	// Environment-specific overlay, e.g. config.production.yaml next to config.yaml
	if env := k.String("app.env"); env != "" {
		envFile := filepath.Join(filepath.Dir(opts.File), fmt.Sprintf("config.%s.yaml", env))
		if err := loadFile(k, envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	envOpts := envprovider.Opt{Prefix: opts.EnvPrefix, TransformFunc: envKey(opts.EnvPrefix)}
	if err := k.Load(envprovider.Provider(".", envOpts), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Store the Koanf instance for flexible access
	cfg.k = k

	// Metrics identify the service by the application name unless overridden.
	if cfg.Observability.Service.Name == "" {
		cfg.Observability.Service.Name = cfg.App.Name
	}
	if cfg.Observability.Environment == "" {
		cfg.Observability.Environment = cfg.App.Env
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name": "redisbridge",
		"app.env":  EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// loadFile merges an optional YAML file, lower-casing its keys so camelCase property
// names and upper-case environment overrides land on the same key.
func loadFile(k *koanf.Koanf, path string) error {
	if err := loadYAML(k, file.Provider(path)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func loadYAML(k *koanf.Koanf, p koanf.Provider) error {
	src := koanf.New(".")
	if err := src.Load(p, yaml.Parser()); err != nil {
		return err
	}
	return k.Load(confmap.Provider(lowerKeys(src.Raw()), ""), nil)
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if nested, ok := value.(map[string]any); ok {
			value = lowerKeys(nested)
		}
		out[strings.ToLower(key)] = value
	}
	return out
}

// envKey converts REDISSON_NODEADDRESSES into redisson.nodeaddresses and drops
// variables outside the known sections.
func envKey(prefix string) func(string, string) (string, any) {
	return func(name, value string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, prefix)), "_", ".")
		for _, root := range roots {
			if strings.HasPrefix(key, root) {
				return key, value
			}
		}
		return "", nil
	}
}

func unmarshalConf() koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				millisecondsHook(),
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			WeaklyTypedInput: true,
		},
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook decodes bare numbers into durations as milliseconds, the unit
// Redisson property files use.
func millisecondsHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != durationType || from == durationType {
			return data, nil
		}

		v := reflect.ValueOf(data)
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(v.Int()) * time.Millisecond, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(v.Uint()) * time.Millisecond, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(v.Float() * float64(time.Millisecond)), nil
		case reflect.String:
			if ms, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64); err == nil {
				return time.Duration(ms) * time.Millisecond, nil
			}
		}
		return data, nil
	}
}
