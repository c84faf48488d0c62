package embedding

import (
	"context"
	"fmt"
	"math"
)

// EmbeddingProvider turns text into a unit-length vector suitable for cosine search.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

func NewEmbeddingProvider(providerType, model, ollamaBaseURL, openAIKey, openAIBaseURL string) (EmbeddingProvider, error) {
	switch providerType {
	case "ollama":
		return NewOllamaProvider(ollamaBaseURL, model), nil
	case "openai":
		return NewOpenAIProvider(openAIKey, openAIBaseURL, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", providerType)
	}
}

// normalizeVector scales vec to magnitude 1; pgvector's cosine distance assumes it.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
