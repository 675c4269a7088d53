package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/logging"
)

// ValidationError represents a single config validation error.
type ValidationError struct {
	Field   string // Config path, e.g. "pools[0].port"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationResult contains all validation errors for a Config.
type ValidationResult struct {
	Errors []*ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Error returns a combined error message.
func (r *ValidationResult) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (r *ValidationResult) Unwrap() error { return ErrValidation }

func (r *ValidationResult) add(field, format string, args ...any) {
	r.Errors = append(r.Errors, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration and returns a *ValidationResult
// listing every problem, or nil.
func (c *Config) Validate() error {
	r := &ValidationResult{}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		r.add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		r.add("server.readTimeout", "must not be negative")
	}
	if c.Server.WriteTimeout < 0 {
		r.add("server.writeTimeout", "must not be negative")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		r.add("logging.level", "unknown level %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		r.add("logging.format", "unknown format %q (want text, json or pretty)", c.Logging.Format)
	}

	if strings.TrimSpace(c.Broker.CommandQueue) == "" {
		r.add("broker.commandQueue", "required")
	}
	if strings.TrimSpace(c.Broker.ReplyModelQueue) == "" {
		r.add("broker.replyModelQueue", "required")
	}

	if c.Pool.MaxPerEndpoint < 1 {
		r.add("pool.maxPerEndpoint", "must be at least 1")
	}
	if c.Pool.MaxWait < 0 {
		r.add("pool.maxWait", "must not be negative")
	}
	if c.Pool.IdleTimeout < 0 {
		r.add("pool.idleTimeout", "must not be negative")
	}
	if c.Pool.ReapInterval < 0 {
		r.add("pool.reapInterval", "must not be negative")
	}

	names := make(map[string]int)
	for i, def := range c.Pools {
		field := fmt.Sprintf("pools[%d]", i)
		if _, err := def.Descriptor(); err != nil {
			r.add(field, "%v", err)
		}
		name := strings.TrimSpace(def.PoolName)
		if name == "" {
			r.add(field+".poolName", "required")
			continue
		}
		if prev, dup := names[name]; dup {
			r.add(field+".poolName", "duplicate of pools[%d]", prev)
			continue
		}
		names[name] = i
	}

	if c.Cache.DefaultSpec != "" {
		if _, err := cache.ParseSpec(c.Cache.DefaultSpec); err != nil {
			r.add("cache.defaultSpec", "%v", err)
		}
	}
	for _, name := range sortedKeys(c.Cache.Caches) {
		field := "cache.caches." + name
		if !slices.Contains(cache.Names, name) {
			r.add(field, "unknown cache (want one of %s)", strings.Join(cache.Names, ", "))
			continue
		}
		if _, err := cache.ParseSpec(c.Cache.Caches[name]); err != nil {
			r.add(field, "%v", err)
		}
	}

	if r.IsValid() {
		return nil
	}
	return r
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
