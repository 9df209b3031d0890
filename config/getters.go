package config

import "errors"

var errNotLoaded = errors.New("configuration not loaded")

// GetString returns the value at key, or the first of def when key is unset.
// Keys are the lower-cased dotted paths the loader produces.
func (c *Config) GetString(key string, def ...string) string {
	if !c.Exists(key) {
		if len(def) > 0 {
			return def[0]
		}
		return ""
	}
	return c.k.String(key)
}

// Exists reports whether any source set key.
func (c *Config) Exists(key string) bool {
	return c != nil && c.k != nil && c.k.Exists(key)
}

// All returns the merged configuration flattened to dotted keys.
func (c *Config) All() map[string]any {
	if c == nil || c.k == nil {
		return nil
	}
	return c.k.All()
}

// Unmarshal decodes the section at key into out with the same hooks Load uses.
func (c *Config) Unmarshal(key string, out any) error {
	if c == nil || c.k == nil {
		return errNotLoaded
	}
	return c.k.UnmarshalWithConf(key, out, unmarshalConf())
}
