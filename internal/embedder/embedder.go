// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// ModelConfig holds configuration for a specific embedding model.
type ModelConfig struct {
	Dimension     int // Embedding dimension
	ContextLength int // Max tokens the model can process
	MaxInputWords int // Safe input size in words before truncation
}

// KnownModels maps embedding model names to their configurations.
// Limits are conservative to avoid "context length exceeded" errors when
// embedding full profile documents.
var KnownModels = map[string]ModelConfig{
	"nomic-embed-text": {
		Dimension:     768,
		ContextLength: 8192,
		MaxInputWords: 4096,
	},
	"mxbai-embed-large": {
		Dimension:     1024,
		ContextLength: 512,
		MaxInputWords: 300,
	},
	"all-minilm": {
		Dimension:     384,
		ContextLength: 256,
		MaxInputWords: 150,
	},
}

// GetModelConfig returns the configuration for a model, or defaults if unknown.
func GetModelConfig(modelName string) ModelConfig {
	if cfg, ok := KnownModels[modelName]; ok {
		return cfg
	}
	// Conservative defaults for unknown models
	return ModelConfig{
		Dimension:     768,
		ContextLength: 2048,
		MaxInputWords: 1024,
	}
}
