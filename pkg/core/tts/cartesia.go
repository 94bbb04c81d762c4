package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lunavoice/luna/pkg/core"
)

const (
	cartesiaBaseURL = "https://api.cartesia.ai"
	cartesiaVersion = "2025-04-16"
	cartesiaModelID = "sonic-3"

	// Default voice ID - deployments should configure their own.
	defaultVoiceID = "a0e99841-438c-4a64-b679-ae501e7d6091"
)

// CartesiaProvider implements Provider using Cartesia's TTS API.
type CartesiaProvider struct {
	apiKey     string
	voiceID    string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a new Cartesia TTS provider.
func NewCartesia(apiKey, voiceID string) *CartesiaProvider {
	if voiceID == "" {
		voiceID = defaultVoiceID
	}
	return &CartesiaProvider{
		apiKey:     apiKey,
		voiceID:    voiceID,
		baseURL:    cartesiaBaseURL,
		httpClient: &http.Client{},
	}
}

// NewCartesiaWithClient creates a provider with a custom base URL and HTTP
// client, for tests and proxies.
func NewCartesiaWithClient(apiKey, voiceID, baseURL string, client *http.Client) *CartesiaProvider {
	p := NewCartesia(apiKey, voiceID)
	if baseURL != "" {
		p.baseURL = baseURL
	}
	if client != nil {
		p.httpClient = client
	}
	return p
}

// Name returns the provider identifier.
func (c *CartesiaProvider) Name() string {
	return "cartesia"
}

type cartesiaTTSRequest struct {
	ModelID          string                    `json:"model_id"`
	Transcript       string                    `json:"transcript"`
	Voice            cartesiaVoiceSpec         `json:"voice"`
	OutputFormat     cartesiaOutputFormat      `json:"output_format"`
	Language         *string                   `json:"language,omitempty"`
	GenerationConfig *cartesiaGenerationConfig `json:"generation_config,omitempty"`
}

type cartesiaVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type cartesiaGenerationConfig struct {
	Speed float64 `json:"speed,omitempty"`
}

func (c *CartesiaProvider) Synthesize(ctx context.Context, text, language string, speed float64) ([]byte, error) {
	lang := LanguageCode(language)
	reqBody := cartesiaTTSRequest{
		ModelID:    cartesiaModelID,
		Transcript: text,
		Voice: cartesiaVoiceSpec{
			Mode: "id",
			ID:   c.voiceID,
		},
		OutputFormat: cartesiaOutputFormat{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: 24000,
		},
		Language: &lang,
	}
	if speed != 0 && speed != 1.0 {
		reqBody.GenerationConfig = &cartesiaGenerationConfig{Speed: speed}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, core.NewTTSError(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewTTSError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.NewTTSError(fmt.Errorf("cartesia request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, core.NewTTSError(fmt.Errorf("cartesia error %d: %s", resp.StatusCode, string(errBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewTTSError(fmt.Errorf("read audio: %w", err))
	}
	return audio, nil
}
