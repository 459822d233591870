package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Service is the vector embedding service interface.
type Service interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model name recorded next to stored vectors.
	Model() string
}

// Config configures an OpenAI-compatible embedding endpoint.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// DefaultConfig returns the default embedding configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.together.xyz/v1",
		Model:   "BAAI/bge-base-en-v1.5",
		Timeout: 30 * time.Second,
	}
}

type service struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewService creates a new embedding Service. Zero values in cfg are filled from DefaultConfig.
func NewService(cfg *Config) Service {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL

	return &service{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    cfg.Timeout,
	}
}

func (s *service) Model() string { return s.model }

func (s *service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("no text provided for embedding")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}
