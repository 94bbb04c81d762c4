package llm

import (
	"context"

	"google.golang.org/genai"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider implements Provider on top of the Gemini API.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed provider.
func NewGemini(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.NewLLMError("failed to create gemini client", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// geminiHistory converts conversation turns to Gemini content, appending the
// closing directive as a final user message when present.
func geminiHistory(history []types.Turn, directive string) []*genai.Content {
	var contents []*genai.Content
	for _, turn := range history {
		role := genai.Role(genai.RoleModel)
		if turn.Role == types.RoleUser {
			role = genai.RoleUser
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	if directive != "" {
		contents = append(contents, genai.NewContentFromText(directive, genai.RoleUser))
	}
	return contents
}

func (p *GeminiProvider) Respond(ctx context.Context, history []types.Turn, directive string, settings types.SessionSettings) (string, error) {
	contents := geminiHistory(history, directive)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(tutorSystemPrompt(settings), genai.RoleUser),
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", core.NewLLMError("failed to get reply", err)
	}
	return CleanMarkdown(resp.Text()), nil
}

func (p *GeminiProvider) Summarize(ctx context.Context, history []types.Turn, settings types.SessionSettings) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(summarySystemPrompt(settings), genai.RoleUser),
	}
	contents := []*genai.Content{genai.NewContentFromText(transcript(history), genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", core.NewLLMError("summary failed", err)
	}
	return CleanMarkdown(resp.Text()), nil
}

func (p *GeminiProvider) Analyze(ctx context.Context, history []types.Turn, settings types.SessionSettings) ([]types.Feedback, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysisSystemPrompt(settings), genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	contents := []*genai.Content{genai.NewContentFromText(transcript(history), genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, core.NewLLMError("analysis failed", err)
	}
	return parseFeedback(resp.Text())
}
