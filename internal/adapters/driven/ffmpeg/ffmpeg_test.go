package ffmpeg

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

type fakeRun struct {
	name string
	args []string
	out  []byte
	err  error
}

func (f *fakeRun) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.name = name
	f.args = args
	return f.out, f.err
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func testRequest() driven.CompositionRequest {
	return driven.CompositionRequest{
		Background:      "bg.mp4",
		BackgroundAudio: "bgm.mp3",
		TitleCard:       "title.png",
		AudioClips:      []string{"title.mp3", "unit-000.mp3"},
		Timeline: domain.TimelineResult{
			LeadIn: 1.5,
			Entries: []domain.TimelineEntry{
				{UnitIndex: 0, CaptionIndex: 0, Text: "first", Start: 1.5, End: 3},
				{UnitIndex: 0, CaptionIndex: 1, Text: "second", Start: 3, End: 4.5},
			},
		},
		CaptionImages: map[int]string{0: "caption-000.png", 1: "caption-001.png"},
		Output:        "out.mp4",
		MaxDuration:   51.5,
	}
}

func TestComposeArgs(t *testing.T) {
	fake := &fakeRun{}
	c := NewCompositor(CompositorConfig{BackgroundVolume: 0.15})
	c.run = fake.run

	if err := c.Compose(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.name != "ffmpeg" {
		t.Errorf("expected ffmpeg binary, got %s", fake.name)
	}
	if fake.args[len(fake.args)-1] != "out.mp4" {
		t.Errorf("expected output last, got %s", fake.args[len(fake.args)-1])
	}

	filter := argValue(fake.args, "-filter_complex")
	if filter == "" {
		t.Fatal("expected a filter graph")
	}

	// Background crop and scale to vertical
	if !strings.Contains(filter, "crop=ih*(1080/1920):ih,scale=1080:1920") {
		t.Errorf("expected vertical crop, got %s", filter)
	}
	// Title card covers the lead-in
	if !strings.Contains(filter, "enable='between(t,0,1.5)'") {
		t.Errorf("expected title overlay window, got %s", filter)
	}
	// Caption overlays follow the timeline windows
	if !strings.Contains(filter, "enable='between(t,1.5,3)'") ||
		!strings.Contains(filter, "enable='between(t,3,4.5)'") {
		t.Errorf("expected caption overlay windows, got %s", filter)
	}
	// Narration clips concatenate into one voice track
	if !strings.Contains(filter, "concat=n=2:v=0:a=1[voice]") {
		t.Errorf("expected audio concat, got %s", filter)
	}
	// Background music ducked and mixed under the voice
	if !strings.Contains(filter, "volume=0.15[bgm]") ||
		!strings.Contains(filter, "amix=inputs=2:duration=first") {
		t.Errorf("expected background mix, got %s", filter)
	}

	if got := argValue(fake.args, "-t"); got != "51.5" {
		t.Errorf("expected duration cap 51.5, got %q", got)
	}
}

func TestComposeSkipsMissingCaptions(t *testing.T) {
	fake := &fakeRun{}
	c := NewCompositor(CompositorConfig{})
	c.run = fake.run

	req := testRequest()
	delete(req.CaptionImages, 0)

	if err := c.Compose(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filter := argValue(fake.args, "-filter_complex")
	if strings.Contains(filter, "between(t,1.5,3)") {
		t.Errorf("expected first caption window dropped, got %s", filter)
	}
	if !strings.Contains(filter, "between(t,3,4.5)") {
		t.Errorf("expected second caption window kept, got %s", filter)
	}
}

func TestComposeNoBackgroundAudioWhenMuted(t *testing.T) {
	fake := &fakeRun{}
	c := NewCompositor(CompositorConfig{BackgroundVolume: 0})
	c.run = fake.run

	if err := c.Compose(context.Background(), testRequest()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filter := argValue(fake.args, "-filter_complex")
	if strings.Contains(filter, "amix") {
		t.Errorf("expected no mix at zero volume, got %s", filter)
	}
	for _, a := range fake.args {
		if a == "bgm.mp3" {
			t.Error("expected background audio input omitted")
		}
	}
}

func TestComposeValidation(t *testing.T) {
	c := NewCompositor(CompositorConfig{})
	c.run = (&fakeRun{}).run

	req := testRequest()
	req.Background = ""
	if err := c.Compose(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}

	req = testRequest()
	req.AudioClips = nil
	if err := c.Compose(context.Background(), req); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestComposeFailureIsRenderError(t *testing.T) {
	fake := &fakeRun{err: errors.New("exit status 1"), out: []byte("boom")}
	c := NewCompositor(CompositorConfig{})
	c.run = fake.run

	err := c.Compose(context.Background(), testRequest())
	if !errors.Is(err, domain.ErrRenderFailed) {
		t.Errorf("expected render failure, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	fake := &fakeRun{out: []byte("12.345\n")}
	c := NewCompositor(CompositorConfig{})
	c.run = fake.run

	duration, err := c.Probe(context.Background(), "clip.mp3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if duration != 12.345 {
		t.Errorf("expected 12.345, got %f", duration)
	}
	if fake.name != "ffprobe" {
		t.Errorf("expected ffprobe binary, got %s", fake.name)
	}
	if fake.args[len(fake.args)-1] != "clip.mp3" {
		t.Errorf("expected path last, got %v", fake.args)
	}
}

func TestProbeBadOutput(t *testing.T) {
	fake := &fakeRun{out: []byte("N/A")}
	c := NewCompositor(CompositorConfig{})
	c.run = fake.run

	if _, err := c.Probe(context.Background(), "clip.mp3"); err == nil {
		t.Error("expected parse error")
	}
}

func TestRenderCaption(t *testing.T) {
	fake := &fakeRun{}
	r := NewCaptionRenderer(CaptionConfig{FontSize: 64})
	r.run = fake.run

	err := r.RenderCaption(context.Background(), "It's 100% true: really", "caption-000.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vf := argValue(fake.args, "-vf")
	if !strings.Contains(vf, `text='It\'s 100\% true\: really'`) {
		t.Errorf("expected escaped drawtext, got %s", vf)
	}
	if !strings.Contains(vf, "fontsize=64") {
		t.Errorf("expected font size, got %s", vf)
	}
	if fake.args[len(fake.args)-1] != "caption-000.png" {
		t.Errorf("expected output path last, got %v", fake.args)
	}
}

func TestRenderCaptionEmptyText(t *testing.T) {
	r := NewCaptionRenderer(CaptionConfig{})
	r.run = (&fakeRun{}).run

	err := r.RenderCaption(context.Background(), "   ", "out.png")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestRenderCaptionFailure(t *testing.T) {
	fake := &fakeRun{err: errors.New("exit status 1")}
	r := NewCaptionRenderer(CaptionConfig{})
	r.run = fake.run

	err := r.RenderCaption(context.Background(), "hello", "out.png")
	if !errors.Is(err, domain.ErrRenderFailed) {
		t.Errorf("expected render failure, got %v", err)
	}
}
