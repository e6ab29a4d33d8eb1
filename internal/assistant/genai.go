package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIGenerator calls the Gemini API. Credentials come from the standard
// GenAI SDK environment variables.
type GenAIGenerator struct {
	client *genai.Client
}

func NewGenAIGenerator(ctx context.Context) (*GenAIGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIGenerator{client: client}, nil
}

func (g *GenAIGenerator) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
