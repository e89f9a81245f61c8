package postproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/socialgrab/downorc/internal/services/slots"
	"github.com/socialgrab/downorc/internal/utils"
)

// Processor runs the fixed ffmpeg/ffprobe pipeline over a downloaded
// file (§4.6). Every step is best-effort: on failure it returns the
// original file unchanged and logs, never fails the request.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
	scratchDir  string
	slotCtl     *slots.Controller
}

func New(ffmpegPath, ffprobePath, scratchDir string, slotCtl *slots.Controller) *Processor {
	return &Processor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, scratchDir: scratchDir, slotCtl: slotCtl}
}

func (p *Processor) scratchPath(suffix string) string {
	return filepath.Join(p.scratchDir, fmt.Sprintf("%s%s", uuid.New().String(), suffix))
}

func (p *Processor) runFFmpeg(ctx context.Context, args []string, timeout time.Duration) error {
	p.slotCtl.AcquireFFmpegSlot(ctx)
	defer p.slotCtl.ReleaseFFmpegSlot(ctx)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w (%s)", err, truncate(string(out), 500))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// FixVideo is Step A (§4.6): probes the stream, then no-ops, re-encodes
// to h264, or rescales to correct a non-unity SAR. Returns the path to
// use for the next step (may be the original path on no-op or error).
func (p *Processor) FixVideo(ctx context.Context, filePath string) string {
	info, err := p.Probe(ctx, filePath)
	if err != nil {
		utils.LogWarn(ctx, "postproc: probe failed before SAR fix, using original file", utils.Fields{"error": err.Error()})
		return filePath
	}

	unitySAR := IsUnitySAR(info.SampleAspectRatio)
	if info.CodecName == "h264" && unitySAR {
		return filePath
	}

	out := p.scratchPath("_fixed.mp4")

	if unitySAR {
		// codec mismatch only: transcode to h264, keep geometry
		err := p.runFFmpeg(ctx, []string{
			"-y", "-i", filePath,
			"-c:v", "libx264", "-preset", "fast", "-crf", "20",
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart",
			out,
		}, 180*time.Second)
		if err != nil {
			utils.LogWarn(ctx, "postproc: h264 transcode failed, keeping original file", utils.Fields{"error": err.Error()})
			return filePath
		}
		return out
	}

	num, den, ok := ParseSAR(info.SampleAspectRatio)
	if !ok || info.Width == 0 || info.Height == 0 {
		utils.LogWarn(ctx, "postproc: cannot parse SAR, keeping original file", utils.Fields{"sar": info.SampleAspectRatio})
		return filePath
	}

	newWidth := evenize((info.Width*num + den/2) / den)
	newHeight := evenize(info.Height)

	scaleFilter := fmt.Sprintf("scale=%d:%d,setsar=1:1", newWidth, newHeight)
	err = p.runFFmpeg(ctx, []string{
		"-y", "-i", filePath,
		"-vf", scaleFilter,
		"-c:v", "libx264", "-preset", "fast", "-crf", "20",
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		out,
	}, 180*time.Second)
	if err != nil {
		utils.LogWarn(ctx, "postproc: SAR rescale failed, keeping original file", utils.Fields{"error": err.Error()})
		return filePath
	}
	return out
}

func evenize(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

// EnsureFaststart is Step B (§4.6): remux moving the moov atom to the
// front, copying all streams. Best-effort.
func (p *Processor) EnsureFaststart(ctx context.Context, filePath string) string {
	out := p.scratchPath("_faststart.mp4")

	err := p.runFFmpeg(ctx, []string{
		"-y", "-i", filePath,
		"-c", "copy",
		"-movflags", "+faststart",
		"-fflags", "+genpts",
		out,
	}, 120*time.Second)
	if err != nil {
		utils.LogWarn(ctx, "postproc: faststart remux failed, keeping original file", utils.Fields{"error": err.Error()})
		return filePath
	}
	return out
}

// Thumbnail is Step D (§4.6). thumbnailURL, when non-empty, is fetched
// and downscaled; otherwise a frame is pulled from the video at
// t=1.0s when isVerticalShort is true. Returns "" when neither applies.
func (p *Processor) Thumbnail(ctx context.Context, filePath, thumbnailURL string, isVerticalShort bool) string {
	out := p.scratchPath("_thumb.jpg")

	if thumbnailURL != "" {
		raw := p.scratchPath("_thumb_raw")
		if err := downloadToFile(ctx, thumbnailURL, raw); err != nil {
			utils.LogWarn(ctx, "postproc: thumbnail fetch failed, omitting thumbnail", utils.Fields{"error": err.Error()})
			return ""
		}
		defer os.Remove(raw)

		err := p.runFFmpeg(ctx, []string{
			"-y", "-i", raw,
			"-vf", "scale='min(320,iw)':'min(320,ih)':force_original_aspect_ratio=decrease",
			"-q:v", "5",
			out,
		}, 30*time.Second)
		if err != nil {
			utils.LogWarn(ctx, "postproc: thumbnail re-encode failed, omitting thumbnail", utils.Fields{"error": err.Error()})
			return ""
		}
		return out
	}

	if isVerticalShort {
		err := p.runFFmpeg(ctx, []string{
			"-y", "-ss", "1.0", "-i", filePath,
			"-frames:v", "1",
			"-vf", "scale=320:320:force_original_aspect_ratio=decrease",
			out,
		}, 30*time.Second)
		if err != nil {
			utils.LogWarn(ctx, "postproc: frame-extract thumbnail failed, omitting thumbnail", utils.Fields{"error": err.Error()})
			return ""
		}
		return out
	}

	return ""
}

// Merge is Step E (§4.6): stream-copy merges separate video/audio
// inputs with the codec-appropriate bitstream filter. DAR is never
// altered.
func (p *Processor) Merge(ctx context.Context, videoPath, audioPath, codecName string) (string, error) {
	out := p.scratchPath("_merged.mp4")

	bsf := bitstreamFilterFor(codecName)
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
	}
	if bsf != "" {
		args = append(args, "-bsf:v", bsf)
	}
	args = append(args, out)

	if err := p.runFFmpeg(ctx, args, 120*time.Second); err != nil {
		return "", err
	}
	return out, nil
}

func bitstreamFilterFor(codecName string) string {
	switch codecName {
	case "h264":
		return "h264_metadata=sample_aspect_ratio=1/1"
	case "hevc":
		return "hevc_metadata=sample_aspect_ratio=1/1"
	default:
		return "" // VP8/VP9 skip the SAR bsf
	}
}
