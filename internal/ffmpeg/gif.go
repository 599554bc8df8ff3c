package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrInvalidRange means end <= start (zero-length or reversed).
	ErrInvalidRange = errors.New("invalid clip range")
	// ErrOutOfRange means the clip range falls outside the video duration.
	ErrOutOfRange = errors.New("clip range outside video duration")
)

// GIF rendering constants: 12 fps at 480px wide keeps files small while the
// boxed caption stays readable.
const (
	gifFPS    = 12
	gifWidth  = 480
	fontSize  = 24
	boxBorder = 5
)

// GIFOptions describes one GIF render.
type GIFOptions struct {
	Caption  string
	FontFile string // path to a TTF with glyphs for the caption's script
}

// ValidateClipRange checks a requested clip range against the video
// duration. duration <= 0 means unknown and skips the upper-bound check.
func ValidateClipRange(start, end, duration float64) error {
	if end <= start {
		return fmt.Errorf("%w: start=%.2f end=%.2f", ErrInvalidRange, start, end)
	}
	if start < 0 {
		return fmt.Errorf("%w: start=%.2f", ErrOutOfRange, start)
	}
	if duration > 0 && end > duration {
		return fmt.Errorf("%w: end=%.2f duration=%.2f", ErrOutOfRange, end, duration)
	}
	return nil
}

// RenderGIF converts a video file into a looping GIF with the caption burned
// in at the bottom. Uses the two-pass palettegen/paletteuse filter so the
// 256-color quantization is computed from the actual frames.
func RenderGIF(ctx context.Context, videoPath, outputPath string, opts GIFOptions) error {
	filters := buildGIFFilter(opts)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", filters,
		"-loop", "0",
		"-y",
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("ffmpeg gif: %s: %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}

func buildGIFFilter(opts GIFOptions) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "fps=%d,scale=%d:-1", gifFPS, gifWidth)

	if caption := sanitizeCaption(opts.Caption); caption != "" {
		fmt.Fprintf(&sb, ",drawtext=")
		if opts.FontFile != "" {
			fmt.Fprintf(&sb, "fontfile='%s':", opts.FontFile)
		}
		fmt.Fprintf(&sb, "text='%s':fontcolor=white:fontsize=%d:", caption, fontSize)
		fmt.Fprintf(&sb, "box=1:boxcolor=black@0.5:boxborderw=%d:", boxBorder)
		fmt.Fprintf(&sb, "x=(w-text_w)/2:y=h-text_h-10")
	}

	sb.WriteString(",split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse")
	return sb.String()
}

// sanitizeCaption strips characters that break the drawtext filter syntax.
func sanitizeCaption(caption string) string {
	replacer := strings.NewReplacer(
		"'", "",
		":", "",
		"\\", "",
		"%", "",
		"\n", " ",
	)
	return strings.TrimSpace(replacer.Replace(caption))
}
