package driven

import (
	"context"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

// AudioAsset is a rendered narration clip on disk.
type AudioAsset struct {
	// Path is the absolute path of the audio file.
	Path string

	// Duration is the measured clip length in seconds.
	Duration float64
}

// NarrationEngine converts text to speech.
//
// Implementations return domain.ErrTextTooLong when text exceeds MaxChars
// and domain.ErrRenderFailed when the engine cannot produce audio.
type NarrationEngine interface {
	// Render synthesizes text into an audio file at outPath and measures
	// its duration.
	Render(ctx context.Context, text string, outPath string) (*AudioAsset, error)

	// MaxChars returns the longest text the engine accepts per request.
	// Zero means unlimited.
	MaxChars() int

	// Name returns the engine name, for logging and output metadata.
	Name() string
}

// CaptionRenderer draws caption chunks as image overlays.
type CaptionRenderer interface {
	// RenderCaption draws a single caption chunk to an image at outPath.
	RenderCaption(ctx context.Context, text string, outPath string) error
}

// CompositionRequest bundles everything the compositor needs to assemble a
// final video.
type CompositionRequest struct {
	// Background is the path of the looping backdrop video.
	Background string

	// BackgroundAudio is an optional music track mixed under narration.
	BackgroundAudio string

	// TitleCard is an optional image shown during the lead-in.
	TitleCard string

	// AudioClips are the narration clips in playback order, the title
	// clip first.
	AudioClips []string

	// Timeline schedules the caption overlays.
	Timeline domain.TimelineResult

	// CaptionImages maps a timeline entry position to its overlay image.
	// Missing positions are skipped; the clock still advances.
	CaptionImages map[int]string

	// Output is the path of the final video file.
	Output string

	// MaxDuration truncates the result when positive, in seconds.
	MaxDuration float64
}

// Compositor assembles narration audio, caption overlays, and a background
// into the final video.
type Compositor interface {
	// Compose renders the final video. Returns domain.ErrRenderFailed
	// when assembly fails.
	Compose(ctx context.Context, req CompositionRequest) error

	// Probe measures the duration of a media file in seconds.
	Probe(ctx context.Context, path string) (float64, error)
}
