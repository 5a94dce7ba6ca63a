package ffmpeg

import (
	"context"
	"fmt"
	"strings"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CaptionRenderer = (*CaptionRenderer)(nil)

// CaptionRenderer draws caption text onto transparent PNG overlays using
// the drawtext filter.
type CaptionRenderer struct {
	ffmpegPath string
	fontFile   string
	fontSize   int
	fontColor  string
	borderSize int
	width      int
	height     int
	run        runner
}

// CaptionConfig holds the settings for NewCaptionRenderer.
type CaptionConfig struct {
	FFmpegPath string

	// FontFile is the path of a TTF font. Empty lets fontconfig pick.
	FontFile string

	// FontSize in points. Defaults to 72.
	FontSize int

	// FontColor in ffmpeg color syntax. Defaults to white.
	FontColor string

	// BorderSize is the text outline width. Defaults to 4.
	BorderSize int

	// Width and Height set the overlay canvas. Defaults to 900x400.
	Width  int
	Height int
}

// NewCaptionRenderer creates a new drawtext caption renderer.
func NewCaptionRenderer(cfg CaptionConfig) *CaptionRenderer {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FontSize == 0 {
		cfg.FontSize = 72
	}
	if cfg.FontColor == "" {
		cfg.FontColor = "white"
	}
	if cfg.BorderSize == 0 {
		cfg.BorderSize = 4
	}
	if cfg.Width == 0 {
		cfg.Width = 900
	}
	if cfg.Height == 0 {
		cfg.Height = 400
	}

	return &CaptionRenderer{
		ffmpegPath: cfg.FFmpegPath,
		fontFile:   cfg.FontFile,
		fontSize:   cfg.FontSize,
		fontColor:  cfg.FontColor,
		borderSize: cfg.BorderSize,
		width:      cfg.Width,
		height:     cfg.Height,
		run:        execRunner,
	}
}

// RenderCaption draws a single caption chunk to a transparent PNG.
func (r *CaptionRenderer) RenderCaption(ctx context.Context, text string, outPath string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: caption text is empty", domain.ErrInvalidInput)
	}

	drawtext := fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:borderw=%d:bordercolor=black:x=(w-text_w)/2:y=(h-text_h)/2",
		escapeDrawtext(text), r.fontSize, r.fontColor, r.borderSize)
	if r.fontFile != "" {
		drawtext += ":fontfile='" + escapeDrawtext(r.fontFile) + "'"
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black@0.0:s=%dx%d,format=rgba", r.width, r.height),
		"-vf", drawtext,
		"-frames:v", "1",
		outPath,
	}

	out, err := r.run(ctx, r.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("%w: drawtext: %v: %s", domain.ErrRenderFailed, err, truncateOutput(out))
	}

	return nil
}

// escapeDrawtext escapes the characters drawtext treats specially.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(s)
}
