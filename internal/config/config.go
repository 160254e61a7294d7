// Package config loads the engine's process-wide settings from YAML
// and, when asked, keeps them fresh by watching the file for changes.
// Readers always see one consistent snapshot via an atomic pointer
// swap; a reload never happens mid-query.
package config

import (
	"os"
	"sync/atomic"

	yaml "github.com/goccy/go-yaml"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Config is the full set of tunables the engine reads at query time.
type Config struct {
	ParallelLevel      int    `yaml:"parallel_level"`
	MaxChunkSize       int    `yaml:"max_chunk_size"`
	NumChunksPerWorker int    `yaml:"num_chunks_per_worker"`
	CacheExpirySeconds int    `yaml:"cache_expiry_seconds"`
	DataDir            string `yaml:"data_dir"`
	RedisAddr          string `yaml:"redis_addr"`

	CatalogBackend  string   `yaml:"catalog_backend"` // "parquet" | "postgres"
	PostgresDSN     string   `yaml:"postgres_dsn"`
	PostgresSchemas []string `yaml:"postgres_schemas"`
}

// Default returns the settings session.py hardcodes as module-level
// constants, generalized into a struct.
func Default() *Config {
	return &Config{
		ParallelLevel:      1,
		MaxChunkSize:       50000,
		NumChunksPerWorker: 10,
		CacheExpirySeconds: 300,
		DataDir:            "./data",
		RedisAddr:          "localhost:6379",
		CatalogBackend:     "parquet",
	}
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Store holds the live, atomically-swappable Config, plus an optional
// fsnotify watcher that reloads it on change.
type Store struct {
	path    string
	log     *zap.Logger
	current atomic.Pointer[Config]
	watcher *fsnotify.Watcher
}

// NewStore loads path once and returns a Store wrapping it.
func NewStore(path string, log *zap.Logger) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, log: log}
	s.current.Store(cfg)
	return s, nil
}

// Get returns the current config snapshot. Safe for concurrent use.
func (s *Store) Get() *Config {
	return s.current.Load()
}

// Watch starts an fsnotify watch on the config file; each write event
// reloads and atomically swaps in a new Config. A parse failure is
// logged and the previous config is kept in place. Call the returned
// stop func to end the watch.
func (s *Store) Watch() (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return nil, err
	}
	s.watcher = watcher

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(s.path)
				if err != nil {
					s.log.Warn("config reload failed, keeping previous config", zap.Error(err))
					continue
				}
				s.current.Store(cfg)
				s.log.Info("config reloaded", zap.String("path", s.path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn("config watcher error", zap.Error(err))
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return watcher.Close()
	}, nil
}
