package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Generator produces raw review feedback for a pull request diff.
type Generator interface {
	GenerateReview(ctx context.Context, diff string) (string, error)
}

// GeminiGenerator drives a Google Gemini model through langchaingo.
type GeminiGenerator struct {
	llm   *googleai.GoogleAI
	model string
}

// NewGeminiGenerator builds a generator bound to the given API key and model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{llm: llm, model: model}, nil
}

// GenerateReview sends the diff to the model and returns its raw text output.
// The output is expected to be a JSON array of comments but is returned
// verbatim; parsing and degradation are the caller's concern.
func (g *GeminiGenerator) GenerateReview(ctx context.Context, diff string) (string, error) {
	prompt := buildReviewPrompt(diff)

	completion, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate review: %w", err)
	}

	return completion, nil
}

func buildReviewPrompt(diff string) string {
	return fmt.Sprintf(`You are an expert code reviewer. Review the following pull request diff and respond with a JSON array of review comments.

Each element must be an object with exactly these fields:
  "file": the path of the file the comment applies to
  "line": the line number in the new version of the file
  "comment": the review comment text

Respond with ONLY the JSON array, no prose and no markdown fences. If the diff needs no comments, respond with [].

Diff:
%s`, diff)
}
