package config

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/objectfs/mountfs/pkg/errors"
)

// Properties is a flat key/value property set. Namespace settings live
// under the prefix "<scheme>.<authority>".
type Properties map[string]string

// GetString returns the value of key, or def when unset or blank.
func (p Properties) GetString(key, def string) string {
	if v, ok := p[key]; ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// GetBool parses key as a boolean.
func (p Properties) GetBool(key string, def bool) (bool, error) {
	v := p.GetString(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid boolean property").
			WithDetail("key", key)
	}
	return b, nil
}

// GetInt64 parses key as a base 10 integer.
func (p Properties) GetInt64(key string, def int64) (int64, error) {
	v := p.GetString(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, errors.Wrap(err, errors.ErrCodeInvalidConfig, "invalid integer property").
			WithDetail("key", key)
	}
	return n, nil
}

// GetMillis parses key as a millisecond count.
func (p Properties) GetMillis(key string, def time.Duration) (time.Duration, error) {
	n, err := p.GetInt64(key, -1)
	if err != nil {
		return def, err
	}
	if n < 0 {
		if _, set := p[key]; set && p.GetString(key, "") != "" {
			return def, errors.Newf(errors.ErrCodeInvalidConfig, "negative duration for %s", key)
		}
		return def, nil
	}
	return time.Duration(n) * time.Millisecond, nil
}

// Set assigns key.
func (p Properties) Set(key, value string) {
	p[key] = value
}

// Namespaces returns the sorted prefixes that declare a default mount.
func (p Properties) Namespaces() []string {
	var out []string
	for key := range p {
		if prefix, ok := strings.CutSuffix(key, KeyDefaultMount); ok && prefix != "" {
			out = append(out, prefix)
		}
	}
	sort.Strings(out)
	return out
}
