package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lunavoice/luna/pkg/core"
	"github.com/lunavoice/luna/pkg/core/types"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIProvider implements Provider against any OpenAI-compatible
// chat-completions API.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint. baseURL
// should include the version prefix, e.g. "https://api.openai.com/v1".
func NewOpenAI(baseURL, apiKey, model string) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

// NewOpenAIWithClient creates a provider with a custom HTTP client.
func NewOpenAIWithClient(baseURL, apiKey, model string, client *http.Client) *OpenAIProvider {
	p := NewOpenAI(baseURL, apiKey, model)
	p.httpClient = client
	return p
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAIProvider) Respond(ctx context.Context, history []types.Turn, directive string, settings types.SessionSettings) (string, error) {
	messages := []chatMessage{{Role: "system", Content: tutorSystemPrompt(settings)}}
	for _, turn := range history {
		role := "assistant"
		if turn.Role == types.RoleUser {
			role = "user"
		}
		messages = append(messages, chatMessage{Role: role, Content: turn.Text})
	}
	if directive != "" {
		messages = append(messages, chatMessage{Role: "system", Content: directive})
	}

	content, err := p.complete(ctx, chatRequest{Model: p.model, Messages: messages})
	if err != nil {
		return "", core.NewLLMError("failed to get reply", err)
	}
	return CleanMarkdown(content), nil
}

func (p *OpenAIProvider) Summarize(ctx context.Context, history []types.Turn, settings types.SessionSettings) (string, error) {
	content, err := p.complete(ctx, chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: summarySystemPrompt(settings)},
			{Role: "user", Content: transcript(history)},
		},
	})
	if err != nil {
		return "", core.NewLLMError("summary failed", err)
	}
	return CleanMarkdown(content), nil
}

func (p *OpenAIProvider) Analyze(ctx context.Context, history []types.Turn, settings types.SessionSettings) ([]types.Feedback, error) {
	content, err := p.complete(ctx, chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisSystemPrompt(settings)},
			{Role: "user", Content: transcript(history)},
		},
		ResponseFormat: &chatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, core.NewLLMError("analysis failed", err)
	}
	return parseFeedback(content)
}

func parseFeedback(content string) ([]types.Feedback, error) {
	var payload struct {
		Feedback []types.Feedback `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, core.NewLLMError("analysis returned malformed JSON", err)
	}
	if payload.Feedback == nil {
		payload.Feedback = []types.Feedback{}
	}
	return payload.Feedback, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, reqBody chatRequest) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return "", fmt.Errorf("chat API status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("chat API status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
