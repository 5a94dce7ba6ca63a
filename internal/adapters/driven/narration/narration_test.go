package narration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

func TestStreamlabsRender(t *testing.T) {
	audio := []byte("fake-mp3-bytes")

	var speakForm struct{ voice, text string }
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/polly/speak":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse form: %v", err)
			}
			speakForm.voice = r.PostForm.Get("voice")
			speakForm.text = r.PostForm.Get("text")
			host := "http://" + r.Host
			w.Write([]byte(`{"success":true,"speak_url":"` + host + `/clip.mp3"}`))
		case "/clip.mp3":
			w.Write(audio)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	engine := NewStreamlabsEngine(StreamlabsConfig{
		SpeakURL: server.URL + "/polly/speak",
	})

	outPath := filepath.Join(t.TempDir(), "unit-000.mp3")
	asset, err := engine.Render(context.Background(), "Hello there.", outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.Path != outPath {
		t.Errorf("expected path %s, got %s", outPath, asset.Path)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("clip content mismatch")
	}

	if speakForm.voice != defaultStreamlabsVoice {
		t.Errorf("expected default voice, got %q", speakForm.voice)
	}
	if speakForm.text != "Hello there." {
		t.Errorf("expected text forwarded, got %q", speakForm.text)
	}
}

func TestStreamlabsRejectedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	}))
	t.Cleanup(server.Close)

	engine := NewStreamlabsEngine(StreamlabsConfig{SpeakURL: server.URL})

	_, err := engine.Render(context.Background(), "Hello.", filepath.Join(t.TempDir(), "out.mp3"))
	if !errors.Is(err, domain.ErrRenderFailed) {
		t.Errorf("expected render failure, got %v", err)
	}
}

func TestStreamlabsTextTooLong(t *testing.T) {
	engine := NewStreamlabsEngine(StreamlabsConfig{})

	long := strings.Repeat("a", streamlabsMaxChars+1)
	_, err := engine.Render(context.Background(), long, "out.mp3")
	if !errors.Is(err, domain.ErrTextTooLong) {
		t.Errorf("expected text too long, got %v", err)
	}
}

func TestOpenAIRender(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))
	t.Cleanup(server.Close)

	engine, err := NewOpenAIEngine(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outPath := filepath.Join(t.TempDir(), "title.mp3")
	asset, err := engine.Render(context.Background(), "Hello there.", outPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asset.Duration != 0 {
		t.Errorf("expected unmeasured duration, got %f", asset.Duration)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	if string(got) != string(audio) {
		t.Error("clip content mismatch")
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	if _, err := NewOpenAIEngine(OpenAIConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestOpenAITextTooLong(t *testing.T) {
	engine, err := NewOpenAIEngine(OpenAIConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	long := strings.Repeat("a", openAIMaxChars+1)
	_, err = engine.Render(context.Background(), long, "out.mp3")
	if !errors.Is(err, domain.ErrTextTooLong) {
		t.Errorf("expected text too long, got %v", err)
	}
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine("streamlabs", OpenAIConfig{}, StreamlabsConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Name() != "streamlabs" {
		t.Errorf("expected streamlabs, got %s", engine.Name())
	}

	engine, err = NewEngine("openai", OpenAIConfig{APIKey: "k"}, StreamlabsConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Name() != "openai" {
		t.Errorf("expected openai, got %s", engine.Name())
	}

	if _, err := NewEngine("espeak", OpenAIConfig{}, StreamlabsConfig{}); err == nil {
		t.Error("expected error for unknown engine")
	}
}
