package narration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Ensure StreamlabsEngine implements NarrationEngine
var _ driven.NarrationEngine = (*StreamlabsEngine)(nil)

const (
	defaultStreamlabsURL = "https://streamlabs.com/polly/speak"

	// streamlabsMaxChars is the per-request input limit of the endpoint.
	streamlabsMaxChars = 550

	defaultStreamlabsVoice = "Matthew"
)

// StreamlabsEngine implements NarrationEngine against the Streamlabs Polly
// endpoint. The endpoint is keyless: a speak request returns a URL to the
// rendered clip, which is then downloaded.
type StreamlabsEngine struct {
	voice      string
	speakURL   string
	httpClient *http.Client
}

// StreamlabsConfig holds the settings for NewStreamlabsEngine.
type StreamlabsConfig struct {
	// Voice selects the Polly voice. Defaults to Matthew.
	Voice string

	// SpeakURL overrides the endpoint, for tests.
	SpeakURL string

	HTTPClient *http.Client
}

// NewStreamlabsEngine creates a new Streamlabs text-to-speech engine.
func NewStreamlabsEngine(cfg StreamlabsConfig) *StreamlabsEngine {
	if cfg.Voice == "" {
		cfg.Voice = defaultStreamlabsVoice
	}
	if cfg.SpeakURL == "" {
		cfg.SpeakURL = defaultStreamlabsURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &StreamlabsEngine{
		voice:      cfg.Voice,
		speakURL:   cfg.SpeakURL,
		httpClient: cfg.HTTPClient,
	}
}

// Render synthesizes text into an MP3 file at outPath.
func (e *StreamlabsEngine) Render(ctx context.Context, text string, outPath string) (*driven.AudioAsset, error) {
	if len(text) > streamlabsMaxChars {
		return nil, fmt.Errorf("%w: %d chars exceeds limit %d", domain.ErrTextTooLong, len(text), streamlabsMaxChars)
	}

	clipURL, err := e.requestClip(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.download(ctx, clipURL, outPath); err != nil {
		return nil, err
	}

	// Duration is measured downstream by the compositor probe.
	return &driven.AudioAsset{Path: outPath}, nil
}

func (e *StreamlabsEngine) requestClip(ctx context.Context, text string) (string, error) {
	form := url.Values{
		"voice": {e.voice},
		"text":  {text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.speakURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create speak request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: streamlabs speak: %v", domain.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: streamlabs speak returned %d", domain.ErrRenderFailed, resp.StatusCode)
	}

	var result struct {
		Success  bool   `json:"success"`
		SpeakURL string `json:"speak_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode speak response: %v", domain.ErrRenderFailed, err)
	}
	if !result.Success || result.SpeakURL == "" {
		return "", fmt.Errorf("%w: streamlabs rejected the request", domain.ErrRenderFailed)
	}

	return result.SpeakURL, nil
}

func (e *StreamlabsEngine) download(ctx context.Context, clipURL, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clipURL, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: download clip: %v", domain.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: clip download returned %d", domain.ErrRenderFailed, resp.StatusCode)
	}

	if err := writeAudioFile(outPath, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}

	return nil
}

// MaxChars returns the input limit per request.
func (e *StreamlabsEngine) MaxChars() int {
	return streamlabsMaxChars
}

// Name returns the engine name.
func (e *StreamlabsEngine) Name() string {
	return "streamlabs"
}

// NewEngine constructs the engine named by kind.
func NewEngine(kind string, openAI OpenAIConfig, streamlabs StreamlabsConfig) (driven.NarrationEngine, error) {
	switch kind {
	case "openai":
		return NewOpenAIEngine(openAI)
	case "streamlabs", "":
		return NewStreamlabsEngine(streamlabs), nil
	default:
		return nil, errors.New("unknown narration engine: " + kind)
	}
}
