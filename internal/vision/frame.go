package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// ErrNoFrame means ffmpeg ran but produced nothing usable.
var ErrNoFrame = errors.New("no frame extracted")

const jpegQuality = 85

// FrameExtractor pulls the first decodable frame out of a WebM fragment with
// ffmpeg and optionally shrinks it before it is sent to the vision model.
type FrameExtractor struct {
	ffmpegPath string
	maxWidth   int
}

func NewFrameExtractor(ffmpegPath string, maxWidth int) *FrameExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FrameExtractor{
		ffmpegPath: ffmpegPath,
		maxWidth:   maxWidth,
	}
}

// ExtractFirstFrame returns frame 0 of videoPath as JPEG bytes.
func (e *FrameExtractor) ExtractFirstFrame(ctx context.Context, videoPath string) ([]byte, error) {
	outPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_frame.jpg"
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-y",
		"-fflags", "+genpts",
		"-i", videoPath,
		"-vf", `select=eq(n\,0)`,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(output))
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read extracted frame failed: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoFrame
	}
	return Downscale(data, e.maxWidth)
}

// Downscale re-encodes data as a JPEG no wider than maxWidth, keeping the
// aspect ratio. Images already narrow enough are returned untouched.
func Downscale(data []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame failed: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxWidth {
		return data, nil
	}

	h := bounds.Dy() * maxWidth / bounds.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode frame failed: %w", err)
	}
	return buf.Bytes(), nil
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
