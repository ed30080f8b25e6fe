// Package config loads service settings from the environment plus an
// optional YAML file of search tuning.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dpolishuk/codeflow/internal/graph"
	"github.com/dpolishuk/codeflow/internal/search"
)

type Config struct {
	Port      string
	Neo4jURI  string
	Neo4jUser string
	Neo4jPass string
	// Neo4jExport turns on graph export after every index build.
	Neo4jExport bool

	EmbeddingProvider string
	TEIURL            string
	OllamaURL         string
	OllamaModel       string

	AgentURL     string
	ReposPath    string
	SnapshotPath string

	LogLevel  string
	LogFormat string

	Tuning Tuning
}

// Tuning is the YAML overlay named by CODEFLOW_CONFIG.
type Tuning struct {
	Search SearchTuning `yaml:"search"`
	Flow   FlowTuning   `yaml:"flow"`
}

type SearchTuning struct {
	TopK        int `yaml:"topK"`
	ExpandDepth int `yaml:"expandDepth"`
}

type FlowTuning struct {
	MaxNodes int `yaml:"maxNodes"`
	MaxEdges int `yaml:"maxEdges"`
	MaxHops  int `yaml:"maxHops"`
	MaxSteps int `yaml:"maxSteps"`
}

func DefaultTuning() Tuning {
	return Tuning{
		Search: SearchTuning{
			TopK:        search.DefaultTopK,
			ExpandDepth: search.DefaultExpandDepth,
		},
		Flow: FlowTuning{
			MaxNodes: graph.DefaultMaxNodes,
			MaxEdges: graph.DefaultMaxEdges,
			MaxHops:  graph.DefaultMaxHops,
			MaxSteps: graph.DefaultMaxSteps,
		},
	}
}

// Limits converts the flow tuning for graph.BuildFlowGraph.
func (t Tuning) Limits() graph.Limits {
	return graph.Limits{
		MaxNodes: t.Flow.MaxNodes,
		MaxEdges: t.Flow.MaxEdges,
		MaxHops:  t.Flow.MaxHops,
		MaxSteps: t.Flow.MaxSteps,
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("BACKEND_PORT", "3001"),
		Neo4jURI:          getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:         getEnv("NEO4J_USER", "neo4j"),
		Neo4jPass:         getEnv("NEO4J_PASSWORD", "codeflow_password"),
		Neo4jExport:       getEnvBool("NEO4J_EXPORT", false),
		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "tei"),
		TEIURL:            getEnv("TEI_URL", "http://localhost:8080"),
		OllamaURL:         getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       getEnv("OLLAMA_MODEL", "nomic-embed-text"),
		AgentURL:          getEnv("AGENT_URL", ""),
		ReposPath:         getEnv("REPOS_PATH", "./repos"),
		SnapshotPath:      getEnv("SNAPSHOT_PATH", "./.codeflow/snapshots.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	tuning, err := LoadTuning(os.Getenv("CODEFLOW_CONFIG"))
	if err != nil {
		return nil, err
	}
	cfg.Tuning = *tuning
	return cfg, nil
}

// LoadTuning reads the YAML overlay at path. An empty path or a missing
// file yields the defaults; unset keys keep their defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return &t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &t, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t Tuning) Validate() error {
	if t.Search.TopK < 1 || t.Search.TopK > search.MaxTopK {
		return fmt.Errorf("invalid configuration: search.topK must be in [1, %d], got %d", search.MaxTopK, t.Search.TopK)
	}
	if t.Search.ExpandDepth < 1 || t.Search.ExpandDepth > 2 {
		return fmt.Errorf("invalid configuration: search.expandDepth must be 1 or 2, got %d", t.Search.ExpandDepth)
	}
	for name, v := range map[string]int{
		"flow.maxNodes": t.Flow.MaxNodes,
		"flow.maxEdges": t.Flow.MaxEdges,
		"flow.maxHops":  t.Flow.MaxHops,
		"flow.maxSteps": t.Flow.MaxSteps,
	} {
		if v < 1 {
			return fmt.Errorf("invalid configuration: %s must be positive, got %d", name, v)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
