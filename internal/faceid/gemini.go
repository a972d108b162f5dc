package faceid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/kozaktomas/face-kiosk/internal/imaging"
)

const geminiModel = "gemini-2.5-flash"

// GeminiClassifier classifies face attributes with a Gemini vision model.
type GeminiClassifier struct {
	client *genai.Client
}

func NewGeminiClassifier(ctx context.Context, apiKey string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClassifier{client: client}, nil
}

func (c *GeminiClassifier) Name() string {
	return geminiModel
}

func (c *GeminiClassifier) ClassifyAttribute(ctx context.Context, image []byte, attribute string) (string, error) {
	resized, err := imaging.Normalize(image, 512)
	if err != nil {
		return "", fmt.Errorf("failed to resize image: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: fmt.Sprintf(classifyPrompt, attribute)},
				{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}},
			},
		},
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	result, err := c.client.Models.GenerateContent(ctx, geminiModel, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}

	var parsed classifyResult
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse classification JSON: %w", err)
	}

	return parsed.Label, nil
}
