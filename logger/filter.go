package logger

import (
	"net/url"
	"reflect"
	"strings"
)

const (
	// DefaultMaxDepth bounds how far FilterValue descends into nested values.
	DefaultMaxDepth = 8

	// DefaultMaskValue replaces sensitive values.
	DefaultMaskValue = "***"
)

// Connection URLs under these schemes keep their structure; only the password is masked.
var urlSchemes = []string{"redis://", "rediss://", "http://", "https://"}

// FilterConfig lists the field names whose values never reach log output.
type FilterConfig struct {
	// SensitiveFields are matched case-insensitively as substrings of the field name.
	SensitiveFields []string
	MaskValue       string
}

// DefaultFilterConfig covers passwords, tokens and connection strings.
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		SensitiveFields: []string{
			"password", "passwd", "pwd",
			"secret", "key", "api_key", "apikey",
			"token", "access_token", "refresh_token",
			"auth", "authorization",
			"credential", "credentials",
			"redis_url", "dsn",
		},
		MaskValue: DefaultMaskValue,
	}
}

// SensitiveDataFilter masks sensitive values before they are handed to zerolog.
type SensitiveDataFilter struct {
	config *FilterConfig
}

// NewSensitiveDataFilter falls back to DefaultFilterConfig when config is nil.
func NewSensitiveDataFilter(config *FilterConfig) *SensitiveDataFilter {
	if config == nil {
		config = DefaultFilterConfig()
	}
	if config.MaskValue == "" {
		config.MaskValue = DefaultMaskValue
	}
	return &SensitiveDataFilter{config: config}
}

// FilterString masks value when key is sensitive. Connection URLs are masked under
// any key since their userinfo may carry a password.
func (f *SensitiveDataFilter) FilterString(key, value string) string {
	switch {
	case value == "":
		return value
	case isURL(value):
		return f.maskURL(value)
	case f.isSensitiveField(key):
		return f.config.MaskValue
	}
	return value
}

// FilterValue masks value when key is sensitive, and otherwise walks maps, slices
// and structs. Structs come back as maps keyed by their json names. Pointer cycles
// are returned as-is.
func (f *SensitiveDataFilter) FilterValue(key string, value any) any {
	w := walker{filter: f, seen: map[uintptr]bool{}}
	return w.walk(key, value, DefaultMaxDepth)
}

// FilterFields applies FilterValue to every entry of fields.
func (f *SensitiveDataFilter) FilterFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = f.FilterValue(k, v)
	}
	return out
}

func (f *SensitiveDataFilter) isSensitiveField(name string) bool {
	name = strings.ToLower(name)
	for _, s := range f.config.SensitiveFields {
		if strings.Contains(name, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func isURL(value string) bool {
	lower := strings.ToLower(value)
	for _, scheme := range urlSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// maskURL replaces the userinfo password. Unparseable URLs are masked entirely.
func (f *SensitiveDataFilter) maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return f.config.MaskValue
	}
	if u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}

	user := url.User(u.User.Username()).String()
	stripped := *u
	stripped.User = nil
	rest := strings.TrimPrefix(stripped.String(), u.Scheme+"://")
	return u.Scheme + "://" + user + ":" + f.config.MaskValue + "@" + rest
}

type walker struct {
	filter *SensitiveDataFilter
	seen   map[uintptr]bool
}

func (w *walker) walk(key string, v any, depth int) any {
	if w.filter.isSensitiveField(key) {
		return w.filter.config.MaskValue
	}
	if v == nil || depth <= 0 {
		return v
	}

	switch tv := v.(type) {
	case string:
		return w.filter.FilterString(key, tv)
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, elem := range tv {
			out[k] = w.walk(k, elem, depth-1)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return v
		}
		ptr := rv.Pointer()
		if w.seen[ptr] {
			return v
		}
		w.seen[ptr] = true
		defer delete(w.seen, ptr)
		return w.fields(rv.Elem(), depth)
	case reflect.Struct:
		return w.fields(rv, depth)
	case reflect.Slice, reflect.Array:
		return w.list(key, rv, depth)
	}
	return v
}

// list keeps the original slice, and so its type, when no element changed.
func (w *walker) list(key string, rv reflect.Value, depth int) any {
	out := make([]any, rv.Len())
	changed := false
	for i := range out {
		elem := rv.Index(i).Interface()
		out[i] = w.walk(key, elem, depth-1)
		changed = changed || !same(elem, out[i])
	}
	if !changed {
		return rv.Interface()
	}
	return out
}

func (w *walker) fields(rv reflect.Value, depth int) map[string]any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := range t.NumField() {
		field := t.Field(i)
		name := jsonName(field)
		if !field.IsExported() || name == "" {
			continue
		}
		out[name] = w.walk(name, rv.Field(i).Interface(), depth-1)
	}
	return out
}

// jsonName returns the json tag name, the Go name when untagged, or "" for json:"-".
func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// same reports whether filtering left a value untouched. Rebuilt maps never are.
func same(before, after any) bool {
	if before == nil || after == nil {
		return before == after
	}
	tb, ta := reflect.TypeOf(before), reflect.TypeOf(after)
	if tb != ta || !tb.Comparable() {
		return false
	}
	return before == after
}
