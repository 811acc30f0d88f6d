package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// field binds a dotted key to a Config value.
type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

//nolint:gochecknoglobals // Static key table.
var fields = map[string]field{
	"api.base_url": {
		get: func(c *Config) string { return c.API.BaseURL },
		set: func(c *Config, v string) error { c.API.BaseURL = v; return nil },
	},
	"api.token": {
		get: func(c *Config) string { return c.API.Token },
		set: func(c *Config, v string) error { c.API.Token = v; return nil },
	},
	"api.tenant_id": {
		get: func(c *Config) string { return c.API.TenantID },
		set: func(c *Config, v string) error { c.API.TenantID = v; return nil },
	},
	"api.timeout": {
		get: func(c *Config) string { return c.API.Timeout.String() },
		set: func(c *Config, v string) error { return setDuration(&c.API.Timeout, v) },
	},
	"import.concurrency": {
		get: func(c *Config) string { return strconv.Itoa(c.Import.Concurrency) },
		set: func(c *Config, v string) error { return setInt(&c.Import.Concurrency, v) },
	},
	"import.retry_count": {
		get: func(c *Config) string { return strconv.Itoa(c.Import.RetryCount) },
		set: func(c *Config, v string) error { return setInt(&c.Import.RetryCount, v) },
	},
	"import.retry_delay": {
		get: func(c *Config) string { return c.Import.RetryDelay.String() },
		set: func(c *Config, v string) error { return setDuration(&c.Import.RetryDelay, v) },
	},
	"import.skip_succeeded": {
		get: func(c *Config) string { return strconv.FormatBool(c.Import.SkipSucceeded) },
		set: func(c *Config, v string) error { return setBool(&c.Import.SkipSucceeded, v) },
	},
	"journal.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Journal.Enabled) },
		set: func(c *Config, v string) error { return setBool(&c.Journal.Enabled, v) },
	},
	"journal.directory": {
		get: func(c *Config) string { return c.Journal.Directory },
		set: func(c *Config, v string) error { c.Journal.Directory = v; return nil },
	},
	"journal.ttl_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.Journal.TTLSeconds) },
		set: func(c *Config, v string) error { return setInt(&c.Journal.TTLSeconds, v) },
	},
	"output.default_format": {
		get: func(c *Config) string { return c.Output.DefaultFormat },
		set: func(c *Config, v string) error { c.Output.DefaultFormat = v; return nil },
	},
	"logging.level": {
		get: func(c *Config) string { return c.Logging.Level },
		set: func(c *Config, v string) error { c.Logging.Level = v; return nil },
	},
	"logging.format": {
		get: func(c *Config) string { return c.Logging.Format },
		set: func(c *Config, v string) error { c.Logging.Format = v; return nil },
	},
	"logging.file": {
		get: func(c *Config) string { return c.Logging.File },
		set: func(c *Config, v string) error { c.Logging.File = v; return nil },
	},
}

// Keys returns every settable key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of a dotted key such as "import.concurrency".
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s", key)
	}
	return f.get(c), nil
}

// Set parses value into the field named by key.
func (c *Config) Set(key, value string) error {
	f, ok := fields[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// List returns every key with its value; the API token is masked.
func (c *Config) List() map[string]string {
	out := make(map[string]string, len(fields))
	for k, f := range fields {
		out[k] = f.get(c)
	}
	out["api.token"] = MaskSecret(c.API.Token)
	return out
}

// MaskSecret keeps the last four characters of a secret.
func MaskSecret(s string) string {
	const visible = 4
	if s == "" {
		return ""
	}
	if len(s) <= visible {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-visible) + s[len(s)-visible:]
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
