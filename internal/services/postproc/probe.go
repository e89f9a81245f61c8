package postproc

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// StreamInfo is the subset of ffprobe's JSON stream output the
// Post-Processor needs (§4.6 Step A, Step C).
type StreamInfo struct {
	Width            int
	Height           int
	CodecName        string
	SampleAspectRatio string
	DurationSec      int
}

type ffprobeOutput struct {
	Streams []struct {
		Width             int    `json:"width"`
		Height            int    `json:"height"`
		CodecName         string `json:"codec_name"`
		CodecType         string `json:"codec_type"`
		SampleAspectRatio string `json:"sample_aspect_ratio"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe extracts width, height, codec_name, sample_aspect_ratio, and
// integer durationSec via a JSON-structured ffprobe call (§4.6 Step A
// and Step C).
func (p *Processor) Probe(ctx context.Context, filePath string) (StreamInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		filePath,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe failed: %w", err)
	}

	var decoded ffprobeOutput
	if err := json.Unmarshal(out, &decoded); err != nil {
		return StreamInfo{}, fmt.Errorf("ffprobe output decode failed: %w", err)
	}

	info := StreamInfo{}
	for _, stream := range decoded.Streams {
		if stream.CodecType == "video" {
			info.Width = stream.Width
			info.Height = stream.Height
			info.CodecName = stream.CodecName
			info.SampleAspectRatio = stream.SampleAspectRatio
			break
		}
	}

	if durationFloat, err := strconv.ParseFloat(strings.TrimSpace(decoded.Format.Duration), 64); err == nil {
		info.DurationSec = int(durationFloat)
	}

	return info, nil
}

// IsUnitySAR reports whether a sample_aspect_ratio value counts as
// "already square" per §4.6 Step A: 1:1, N/A, or empty.
func IsUnitySAR(sar string) bool {
	switch strings.TrimSpace(sar) {
	case "1:1", "N/A", "":
		return true
	default:
		return false
	}
}

// ParseSAR splits "num:den" into its two integer components.
func ParseSAR(sar string) (num, den int, ok bool) {
	parts := strings.Split(sar, ":")
	if len(parts) != 2 {
		return 0, 0, false
	}
	n, errN := strconv.Atoi(parts[0])
	d, errD := strconv.Atoi(parts[1])
	if errN != nil || errD != nil || d == 0 {
		return 0, 0, false
	}
	return n, d, true
}
