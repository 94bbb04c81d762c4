package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/lunavoice/luna/pkg/core"
)

const defaultWhisperModel = "whisper-1"

// WhisperProvider implements Provider against any OpenAI-compatible
// audio transcription API.
type WhisperProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewWhisper creates a provider for an OpenAI-compatible transcription
// endpoint. baseURL should include the version prefix, e.g.
// "https://api.openai.com/v1".
func NewWhisper(baseURL, apiKey, model string) *WhisperProvider {
	if model == "" {
		model = defaultWhisperModel
	}
	return &WhisperProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

// NewWhisperWithClient creates a provider with a custom HTTP client.
func NewWhisperWithClient(baseURL, apiKey, model string, client *http.Client) *WhisperProvider {
	p := NewWhisper(baseURL, apiKey, model)
	p.httpClient = client
	return p
}

// Name returns the provider identifier.
func (p *WhisperProvider) Name() string {
	return "whisper"
}

func (p *WhisperProvider) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", core.NewASRError(fmt.Errorf("empty audio payload"))
	}
	if format == "" {
		format = "wav"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "audio."+format)
	if err != nil {
		return "", core.NewASRError(fmt.Errorf("build form: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return "", core.NewASRError(fmt.Errorf("write audio: %w", err))
	}
	if err := mw.WriteField("model", p.model); err != nil {
		return "", core.NewASRError(fmt.Errorf("write model field: %w", err))
	}
	if err := mw.Close(); err != nil {
		return "", core.NewASRError(fmt.Errorf("close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", core.NewASRError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", core.NewASRError(fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", core.NewASRError(fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return "", core.NewASRError(fmt.Errorf("transcription API status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", core.NewASRError(fmt.Errorf("decode response: %w", err))
	}
	return parsed.Text, nil
}
