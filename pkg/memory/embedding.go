package memory

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// EmbeddingService turns text into an embedding vector. Wired into the
// engine so thoughts submitted without a vector still land indexable.
type EmbeddingService interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(apiKey, model string) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbedding3Small)
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.EmbeddingModel(model),
	}
}

func (s *OpenAIEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	res, err := s.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: s.model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})

	if err != nil {
		return nil, err
	}

	if len(res.Data) == 0 {
		return nil, fmt.Errorf("openai: no embedding returned")
	}

	return res.Data[0].Embedding, nil
}

// MockEmbedder produces small deterministic vectors for tests and offline
// development.
type MockEmbedder struct{}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (s *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	embedding := make([]float64, 4)

	for i := range embedding {
		if len(text) > 0 {
			embedding[i] = float64(text[i%len(text)]) / 256.0
		} else {
			embedding[i] = 0.5
		}
	}

	return embedding, nil
}
