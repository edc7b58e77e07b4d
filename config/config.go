// Package config loads the ragtime configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/ragtime"
	"github.com/poiesic/ragtime/ai"
	"github.com/poiesic/ragtime/history"
	"github.com/poiesic/ragtime/ingestion"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides ai.api_key so the key can stay out of the file.
const APIKeyEnv = "RAGTIME_API_KEY"

// File is the top-level layout of the configuration file. Sections left
// out of the file keep their defaults.
type File struct {
	AI        *ai.Config      `yaml:"ai"`
	Pipeline  *ragtime.Config `yaml:"pipeline"`
	Storage   Storage         `yaml:"storage"`
	Redis     Redis           `yaml:"redis"`
	Server    Server          `yaml:"server"`
	Ingestion Ingestion       `yaml:"ingestion"`
}

// Storage locates the fragment store.
type Storage struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Redis configures the shared session store. An empty Addr keeps
// sessions in process memory.
type Redis struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// Enabled reports whether sessions are stored in Redis.
func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Ingestion configures index building.
type Ingestion struct {
	Collection string `yaml:"collection"`
	Preset     string `yaml:"preset"`
	// Strategy, ChunkSize and ChunkOverlap override the preset when set.
	Strategy     string `yaml:"strategy"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	BatchSize    int    `yaml:"batch_size"`
	Workers      int    `yaml:"workers"`
}

// Chunking resolves the preset and overrides into a chunking setup.
func (i Ingestion) Chunking() (ingestion.Chunking, error) {
	c, err := ingestion.Preset(i.Preset)
	if err != nil {
		return c, err
	}
	if i.Strategy != "" {
		c.Strategy = ingestion.Strategy(i.Strategy)
	}
	if i.ChunkSize > 0 {
		c.Size = i.ChunkSize
	}
	if i.ChunkOverlap > 0 {
		c.Overlap = i.ChunkOverlap
	}
	_, err = ingestion.NewSplitter(c)
	return c, err
}

// Options converts the section into ingestion pipeline options.
func (i Ingestion) Options() ([]ingestion.Option, error) {
	c, err := i.Chunking()
	if err != nil {
		return nil, err
	}
	opts := []ingestion.Option{
		ingestion.WithChunking(c),
		ingestion.WithCollection(i.Collection),
	}
	if i.BatchSize > 0 {
		opts = append(opts, ingestion.WithBatchSize(i.BatchSize))
	}
	if i.Workers > 0 {
		opts = append(opts, ingestion.WithPoolSize(i.Workers))
	}
	return opts, nil
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		AI:       ai.DefaultConfig(),
		Pipeline: ragtime.DefaultConfig(),
		Storage: Storage{
			Path: "ragtime.db",
		},
		Redis: Redis{
			KeyPrefix: history.DefaultKeyPrefix,
			TTL:       24 * time.Hour,
		},
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Ingestion: Ingestion{
			Collection: ragtime.DefaultConfig().Collection,
			Preset:     ingestion.DefaultPreset,
			BatchSize:  ingestion.DefaultBatchSize,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// The API key from the environment wins over the file.
func Load(path string) (*File, error) {
	f := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		f.AI.APIKey = key
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes YAML data into f. Keys absent from data leave f unchanged.
func Parse(data []byte, f *File) error {
	if err := yaml.Unmarshal(data, f); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	// An explicit null section would otherwise clear the defaults.
	if f.AI == nil {
		f.AI = ai.DefaultConfig()
	}
	if f.Pipeline == nil {
		f.Pipeline = ragtime.DefaultConfig()
	}
	return nil
}

// Validate checks every section.
func (f *File) Validate() error {
	if err := f.AI.Validate(); err != nil {
		return err
	}
	if err := f.Pipeline.Validate(); err != nil {
		return err
	}
	if f.Storage.Path == "" && !f.Storage.InMemory {
		return errors.New("storage config: path is required unless in_memory is set")
	}
	if f.Redis.TTL < 0 {
		return errors.New("redis config: ttl cannot be negative")
	}
	if f.Server.Addr == "" {
		return errors.New("server config: addr is required")
	}
	if f.Ingestion.BatchSize < 0 || f.Ingestion.Workers < 0 {
		return errors.New("ingestion config: batch_size and workers cannot be negative")
	}
	if _, err := f.Ingestion.Chunking(); err != nil {
		return fmt.Errorf("ingestion config: %w", err)
	}
	return nil
}
