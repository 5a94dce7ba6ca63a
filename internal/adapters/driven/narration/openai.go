// Package narration provides text-to-speech engines.
package narration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Ensure OpenAIEngine implements NarrationEngine
var _ driven.NarrationEngine = (*OpenAIEngine)(nil)

// openAIMaxChars is the input limit of the OpenAI speech endpoint.
const openAIMaxChars = 4096

// OpenAIEngine implements NarrationEngine using the OpenAI speech API.
type OpenAIEngine struct {
	client openai.Client
	model  openai.SpeechModel
	voice  openai.AudioSpeechNewParamsVoice
}

// OpenAIConfig holds the settings for NewOpenAIEngine.
type OpenAIConfig struct {
	APIKey string

	// Model selects the speech model. Defaults to tts-1.
	Model string

	// Voice selects the narration voice. Defaults to alloy.
	Voice string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// NewOpenAIEngine creates a new OpenAI text-to-speech engine.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SpeechModelTTS1)
	}
	if cfg.Voice == "" {
		cfg.Voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIEngine{
		client: openai.NewClient(opts...),
		model:  openai.SpeechModel(cfg.Model),
		voice:  openai.AudioSpeechNewParamsVoice(cfg.Voice),
	}, nil
}

// Render synthesizes text into an MP3 file at outPath.
func (e *OpenAIEngine) Render(ctx context.Context, text string, outPath string) (*driven.AudioAsset, error) {
	if len(text) > openAIMaxChars {
		return nil, fmt.Errorf("%w: %d chars exceeds limit %d", domain.ErrTextTooLong, len(text), openAIMaxChars)
	}

	resp, err := e.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          e.model,
		Voice:          e.voice,
		Input:          text,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai speech: %v", domain.ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	if err := writeAudioFile(outPath, resp.Body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}

	// Duration is measured downstream by the compositor probe.
	return &driven.AudioAsset{Path: outPath}, nil
}

// MaxChars returns the input limit per request.
func (e *OpenAIEngine) MaxChars() int {
	return openAIMaxChars
}

// Name returns the engine name.
func (e *OpenAIEngine) Name() string {
	return "openai"
}

func writeAudioFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write audio file: %w", err)
	}

	return f.Close()
}
