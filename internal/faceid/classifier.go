package faceid

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-kiosk/internal/config"
)

// classifyPrompt instructs the vision model to return a single JSON object.
// The attribute name is interpolated; for this system only "gender" is used.
const classifyPrompt = `You are a photo attribute classifier at a check-in kiosk.
Look at the face in the image and classify the attribute %q.
For "gender" answer exactly "male", "female" or "unknown".
Respond with a single JSON object: {"label": "<answer>"}.
If no face is visible or the attribute cannot be determined, use "unknown".`

// classifyResult is the JSON shape both providers are asked to return.
type classifyResult struct {
	Label string `json:"label"`
}

// NewClassifier builds the configured attribute classifier, or nil when
// classification is disabled.
func NewClassifier(ctx context.Context, cfg *config.ClassifierConfig) (Classifier, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		if cfg.OpenAIToken == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN is required for the openai classifier")
		}
		return NewOpenAIClassifier(cfg.OpenAIToken), nil
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini classifier")
		}
		return NewGeminiClassifier(ctx, cfg.GeminiKey)
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}
