// Package config provides the process-wide configuration singleton for the
// memory store: a layered YAML file (project > XDG > home), environment
// variable overrides, and fsnotify-driven hot reload for the options that
// are safe to change after startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	v          *viper.Viper
	mu         sync.RWMutex
	once       sync.Once
	watcher    *fsnotify.Watcher
)

// structuralKeys cannot be changed by hot reload once the database has been
// migrated — embedding_dimensions is fixed at migration time.
var structuralKeys = map[string]bool{
	"embedding_dimensions": true,
	"database_path":        true,
}

// Initialize sets up the viper configuration singleton. Must be called once
// at process startup; a second call is a no-op (forbid re-initialization,
// package-level singletons).
func Initialize() error {
	var err error
	once.Do(func() {
		err = initialize()
	})
	return err
}

func initialize() error {
	mu.Lock()
	defer mu.Unlock()

	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	if cwd, cerr := os.Getwd(); cerr == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".memoria", "config.yaml")
			if _, serr := os.Stat(candidate); serr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, cerr := os.UserConfigDir(); cerr == nil {
			candidate := filepath.Join(configDir, "memoria", "config.yaml")
			if _, serr := os.Stat(candidate); serr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	if !configFileSet {
		if home, cerr := os.UserHomeDir(); cerr == nil {
			candidate := filepath.Join(home, ".memoria", "config.yaml")
			if _, serr := os.Stat(candidate); serr == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("MEMORIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults wires every option with its tunable default.
func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	v.SetDefault("database_path", filepath.Join(".", "data", "memoria.db"))
	v.SetDefault("embedding_dimensions", 384)
	v.SetDefault("short_term_ttl_seconds", 3600)
	v.SetDefault("cleanup_interval_seconds", 300)
	v.SetDefault("search_default_top_k", 10)
	v.SetDefault("batch_max_size", 100)
	v.SetDefault("access_log_rate_limit_seconds", 60)
	v.SetDefault("max_content_length", 1_000_000)
	v.SetDefault("importance_max_accesses", 100)
	v.SetDefault("rrf_constant", 60)
	v.SetDefault("consolidation_min_memories", 2)
	v.SetDefault("consolidation_max_memories", 50)

	v.SetDefault("cache_max_size", 1000)
	v.SetDefault("cache_ttl_seconds", 3600)
	v.SetDefault("cache_similarity_threshold", 0.95)

	v.SetDefault("token_buffer_ratio", 0.1)
	v.SetDefault("graph_max_depth", 3)
	v.SetDefault("graph_max_results", 50)
}

// Get returns the underlying viper instance for callers that need a typed
// getter not exposed below. Returns nil if Initialize has not been called.
func Get() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	return v
}

func GetString(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetInt(key string) int {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

func GetInt64(key string) int64 {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return 0
	}
	return v.GetInt64(key)
}

func GetFloat64(key string) float64 {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return 0
	}
	return v.GetFloat64(key)
}

func GetBool(key string) bool {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

func GetDuration(key string) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value at runtime (used by hot reload and by
// tests). Refuses to change structural keys once the store is running.
func Set(key string, value any) error {
	mu.Lock()
	defer mu.Unlock()
	if v == nil {
		return fmt.Errorf("config not initialized")
	}
	if structuralKeys[key] {
		return fmt.Errorf("%s is fixed at migration time and cannot be changed at runtime", key)
	}
	v.Set(key, value)
	return nil
}

// Watch starts an fsnotify watcher on the active config file, if any, and
// calls onChange after each reload. It is a no-op when no config file was
// located. Callers should defer StopWatch.
func Watch(onChange func()) error {
	mu.Lock()
	defer mu.Unlock()
	if v == nil || v.ConfigFileUsed() == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(v.ConfigFileUsed())); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	watcher = w
	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != v.ConfigFileUsed() {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mu.Lock()
				pinned := make(map[string]any, len(structuralKeys))
				for k := range structuralKeys {
					pinned[k] = v.Get(k)
				}
				_ = v.ReadInConfig()
				for k, val := range pinned {
					v.Set(k, val)
				}
				mu.Unlock()
				if onChange != nil {
					onChange()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// StopWatch stops the fsnotify watcher started by Watch, if any.
func StopWatch() {
	mu.Lock()
	defer mu.Unlock()
	if watcher != nil {
		watcher.Close()
		watcher = nil
	}
}

// reset is used by tests to allow re-initialization within one process.
func reset() {
	once = sync.Once{}
}
