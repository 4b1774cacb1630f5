package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig `yaml:"server"`
	ChatLLM   LLMConfig    `yaml:"chat_llm"`
	EmbedLLM  LLMConfig    `yaml:"embed_llm"`
	Guardrail LLMConfig    `yaml:"guardrail_llm"`
	RAG       RAGConfig    `yaml:"rag"`
}

type ServerConfig struct {
	Port              int `yaml:"port"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

const (
	defaultPort         = 9013
	defaultTimeoutSec   = 60
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 4
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.RequestTimeoutSec == 0 {
		c.Server.RequestTimeoutSec = defaultTimeoutSec
	}
	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap == 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}

	// API keys are usually injected through the environment rather than
	// committed to the config file.
	if c.ChatLLM.Key == "" {
		c.ChatLLM.Key = os.Getenv("OPENAI_API_KEY")
	}
	if c.EmbedLLM.Key == "" {
		c.EmbedLLM.Key = c.ChatLLM.Key
	}

	// The guardrail shares the chat endpoint unless configured apart.
	if c.Guardrail.BaseURL == "" {
		c.Guardrail.BaseURL = c.ChatLLM.BaseURL
	}
	if c.Guardrail.Key == "" {
		c.Guardrail.Key = c.ChatLLM.Key
	}
	if c.Guardrail.Model == "" {
		c.Guardrail.Model = c.ChatLLM.Model
	}
}
