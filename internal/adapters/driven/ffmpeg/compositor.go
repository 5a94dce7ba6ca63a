// Package ffmpeg shells out to ffmpeg and ffprobe for caption rendering,
// media probing, and final video assembly.
package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Compositor = (*Compositor)(nil)

// runner executes an external command and returns its combined output.
// Swapped out in tests.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Compositor assembles the final vertical video: looping background,
// concatenated narration audio, and caption overlays scheduled by the
// timeline.
type Compositor struct {
	ffmpegPath  string
	ffprobePath string
	width       int
	height      int
	bgVolume    float64
	logger      *slog.Logger
	run         runner
}

// CompositorConfig holds the settings for NewCompositor.
type CompositorConfig struct {
	// FFmpegPath and FFprobePath locate the binaries. Default to the
	// names resolved via PATH.
	FFmpegPath  string
	FFprobePath string

	// Width and Height set the output resolution. Defaults to 1080x1920.
	Width  int
	Height int

	// BackgroundVolume scales the background audio track under the
	// narration. Zero disables the track entirely.
	BackgroundVolume float64

	Logger *slog.Logger
}

// NewCompositor creates a new ffmpeg-backed compositor.
func NewCompositor(cfg CompositorConfig) *Compositor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.Width == 0 {
		cfg.Width = 1080
	}
	if cfg.Height == 0 {
		cfg.Height = 1920
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Compositor{
		ffmpegPath:  cfg.FFmpegPath,
		ffprobePath: cfg.FFprobePath,
		width:       cfg.Width,
		height:      cfg.Height,
		bgVolume:    cfg.BackgroundVolume,
		logger:      cfg.Logger,
		run:         execRunner,
	}
}

// Compose renders the final video in a single ffmpeg invocation.
func (c *Compositor) Compose(ctx context.Context, req driven.CompositionRequest) error {
	if req.Background == "" {
		return fmt.Errorf("%w: background video is required", domain.ErrInvalidInput)
	}
	if len(req.AudioClips) == 0 {
		return fmt.Errorf("%w: at least one audio clip is required", domain.ErrInvalidInput)
	}
	if req.Output == "" {
		return fmt.Errorf("%w: output path is required", domain.ErrInvalidInput)
	}

	args, err := c.buildArgs(req)
	if err != nil {
		return err
	}

	c.logger.Debug("composing video",
		"output", req.Output,
		"clips", len(req.AudioClips),
		"overlays", len(req.CaptionImages))

	out, err := c.run(ctx, c.ffmpegPath, args...)
	if err != nil {
		c.logger.Error("ffmpeg failed", "error", err, "output", truncateOutput(out))
		return fmt.Errorf("%w: ffmpeg: %v", domain.ErrRenderFailed, err)
	}

	return nil
}

// buildArgs constructs the full ffmpeg argument list. Input order:
// background video, narration clips, optional background audio, title
// card, caption images.
func (c *Compositor) buildArgs(req driven.CompositionRequest) ([]string, error) {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	// Loop the backdrop so short clips cover the whole narration.
	args = append(args, "-stream_loop", "-1", "-i", req.Background)

	for _, clip := range req.AudioClips {
		args = append(args, "-i", clip)
	}

	bgAudioIndex := -1
	nextIndex := 1 + len(req.AudioClips)
	if req.BackgroundAudio != "" && c.bgVolume > 0 {
		args = append(args, "-i", req.BackgroundAudio)
		bgAudioIndex = nextIndex
		nextIndex++
	}

	titleIndex := -1
	if req.TitleCard != "" {
		args = append(args, "-i", req.TitleCard)
		titleIndex = nextIndex
		nextIndex++
	}

	// Caption images in deterministic entry order.
	captionIndex := make(map[int]int, len(req.CaptionImages))
	for _, pos := range sortedPositions(req.CaptionImages) {
		args = append(args, "-i", req.CaptionImages[pos])
		captionIndex[pos] = nextIndex
		nextIndex++
	}

	var filter strings.Builder

	// Crop the backdrop to the target aspect ratio, then scale.
	fmt.Fprintf(&filter, "[0:v]crop=ih*(%d/%d):ih,scale=%d:%d[bg0]", c.width, c.height, c.width, c.height)

	// Overlay chain: title card during the lead-in, then one caption per
	// timeline entry.
	overlay := 0
	current := "bg0"
	addOverlay := func(inputIdx int, start, end float64) {
		next := fmt.Sprintf("bg%d", overlay+1)
		fmt.Fprintf(&filter,
			";[%s][%d:v]overlay=x=(main_w-overlay_w)/2:y=(main_h-overlay_h)/2:enable='between(t,%s,%s)'[%s]",
			current, inputIdx, formatSeconds(start), formatSeconds(end), next)
		current = next
		overlay++
	}

	if titleIndex >= 0 && req.Timeline.LeadIn > 0 {
		addOverlay(titleIndex, 0, req.Timeline.LeadIn)
	}
	for pos, entry := range req.Timeline.Entries {
		idx, ok := captionIndex[pos]
		if !ok {
			continue // missing caption, the clock still advances
		}
		addOverlay(idx, entry.Start, entry.End)
	}

	// Concatenate the narration clips into a single voice track.
	filter.WriteString(";")
	for i := range req.AudioClips {
		fmt.Fprintf(&filter, "[%d:a]", 1+i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=0:a=1[voice]", len(req.AudioClips))

	audioOut := "voice"
	if bgAudioIndex >= 0 {
		fmt.Fprintf(&filter, ";[%d:a]volume=%s[bgm]", bgAudioIndex, formatSeconds(c.bgVolume))
		filter.WriteString(";[voice][bgm]amix=inputs=2:duration=first[mix]")
		audioOut = "mix"
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "["+current+"]",
		"-map", "["+audioOut+"]",
	)

	if req.MaxDuration > 0 {
		args = append(args, "-t", formatSeconds(req.MaxDuration))
	}

	args = append(args,
		"-c:v", "h264",
		"-b:v", "20M",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		req.Output,
	)

	return args, nil
}

// Probe measures the duration of a media file in seconds.
func (c *Compositor) Probe(ctx context.Context, path string) (float64, error) {
	out, err := c.run(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration for %s: %w", path, err)
	}

	return duration, nil
}

func sortedPositions(m map[int]string) []int {
	positions := make([]int, 0, len(m))
	for pos := range m {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	return positions
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncateOutput(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		return s[:max]
	}
	return s
}
