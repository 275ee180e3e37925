// Package mock provides test double implementations of the embedding
// interface.
//
// MockEmbedder runs without external AI service dependencies and produces
// deterministic vectors from a text hash, so identical texts always embed
// identically across test runs.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
