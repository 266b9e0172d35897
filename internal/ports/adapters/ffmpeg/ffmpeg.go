package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/transcut/internal/ports"
	"github.com/forPelevin/transcut/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string

	width  int
	height int
	fps    int
	logf   func(string, ...any)
}

type Option func(*Adapter)

// WithCanvas sets the output resolution and frame rate for rendered clips.
func WithCanvas(width, height, fps int) Option {
	return func(a *Adapter) {
		if width > 0 && height > 0 {
			a.width, a.height = width, height
		}
		if fps > 0 {
			a.fps = fps
		}
	}
}

func WithLogf(logf func(string, ...any)) Option {
	return func(a *Adapter) {
		if logf != nil {
			a.logf = logf
		}
	}
}

func New(ffmpegPath, ffprobePath string, opts ...Option) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	a := &Adapter{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		width:   1920,
		height:  1080,
		fps:     30,
		logf:    func(string, ...any) {},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inPath, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
}

// Probe reads duration and the first video stream's geometry. Files ffprobe
// cannot read, or that have no positive duration, are rejected.
func (a *Adapter) Probe(ctx context.Context, path string) (types.MediaInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return types.MediaInfo{}, fmt.Errorf("%w: %v", ports.ErrMediaRejected, err)
	}
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	b, err := cmd.Output()
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		return types.MediaInfo{}, fmt.Errorf("%w: ffprobe: %v %s", ports.ErrMediaRejected, err, stderr)
	}
	return parseProbe(b)
}

func parseProbe(b []byte) (types.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return types.MediaInfo{}, fmt.Errorf("%w: parse ffprobe output: %v", ports.ErrMediaRejected, err)
	}

	var info types.MediaInfo
	info.Duration, _ = strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	for _, s := range out.Streams {
		if info.Duration <= 0 {
			if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d > info.Duration {
				info.Duration = d
			}
		}
		if s.CodecType != "video" || info.Width > 0 {
			continue
		}
		info.Width, info.Height = s.Width, s.Height
		info.FPS = parseRate(s.AvgFrameRate)
		if info.FPS <= 0 {
			info.FPS = parseRate(s.RFrameRate)
		}
	}
	if info.Duration <= 0 {
		return types.MediaInfo{}, fmt.Errorf("%w: no playable duration", ports.ErrMediaRejected)
	}
	return info, nil
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

// RenderTimeline renders every clip's source window to an intermediate file
// at the canvas size, then joins them with the concat demuxer.
func (a *Adapter) RenderTimeline(ctx context.Context, clips []ports.RenderClip, outPath string) error {
	if len(clips) == 0 {
		return fmt.Errorf("render timeline: no clips")
	}
	work, err := os.MkdirTemp(filepath.Dir(outPath), ".render-*")
	if err != nil {
		return fmt.Errorf("render timeline: %w", err)
	}
	defer os.RemoveAll(work)

	var list strings.Builder
	for i, rc := range clips {
		part := filepath.Join(work, fmt.Sprintf("%03d.mp4", i+1))
		a.logf("[ffmpeg] clip %d/%d %s [%.3f, %.3f]", i+1, len(clips), rc.Clip.ID, rc.Clip.Offset, rc.Clip.TrimEnd)
		if err := a.renderClip(ctx, rc, part); err != nil {
			return err
		}
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(part))
	}

	listPath := filepath.Join(work, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) renderClip(ctx context.Context, rc ports.RenderClip, outPath string) error {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d",
		a.width, a.height, a.width, a.height, a.fps,
	)
	if rc.Subtitles != "" {
		vf += ",subtitles=" + escapeFilterPath(rc.Subtitles)
	}
	args := []string{
		"-y",
		"-ss", fmtSeconds(rc.Clip.Offset),
		"-t", fmtSeconds(rc.Clip.Duration),
		"-i", rc.SourcePath,
		"-map", "0:v:0",
		"-map", "0:a:0?",
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "192k",
		outPath,
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render clip %s: %w\n%s", rc.Clip.ID, err, string(b))
	}
	return nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}

func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
