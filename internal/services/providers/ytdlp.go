package providers

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/socialgrab/downorc/internal/models"
)

// YtdlpProvider wraps the yt-dlp binary as an external process — the
// SDK itself is opaque per §1/§6, only its local-file-or-error
// contract matters to the core.
type YtdlpProvider struct {
	binaryPath string
	scratchDir string
}

func NewYtdlpProvider(binaryPath, scratchDir string) *YtdlpProvider {
	return &YtdlpProvider{binaryPath: binaryPath, scratchDir: scratchDir}
}

func (p *YtdlpProvider) Name() string { return "ytdlp" }

// formatStringFor picks the provider-adapter format hint for the given
// URL (§8 "format-selection hints per routing source key", grounded on
// downloader.py's _get_video_options).
func formatStringFor(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "tiktok"):
		return "best[ext=mp4][vcodec^=avc]/best[ext=mp4][vcodec^=h264]/best[ext=mp4]/best"
	case (strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be")) && !strings.Contains(lower, "/shorts/"):
		return "best[height<=720][ext=mp4]/best[height<=720]/best[ext=mp4]/best"
	case strings.Contains(lower, "pinterest") || strings.Contains(lower, "pin.it"):
		return "best[ext=mp4]/best[ext=webm]/bestvideo+bestaudio/best"
	default:
		return "best[ext=mp4]/best"
	}
}

var progressLine = regexp.MustCompile(`(?i)\[download\]\s+([\d.]+)% of ~?([\d.]+)(\w+) at\s+([\d.]+)(\w+)/s`)

func (p *YtdlpProvider) Download(ctx context.Context, url string, opts Options) (models.DownloadResult, error) {
	timeout := time.Duration(opts.DownloadTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outputTemplate := fmt.Sprintf("%s/%s.%%(ext)s", p.scratchDir, uuid.New().String())

	args := []string{
		"--format", formatStringFor(url),
		"--merge-output-format", "mp4",
		"--socket-timeout", "10",
		"--retries", "2",
		"--no-check-certificate",
		"--geo-bypass",
		"--newline",
		"--output", outputTemplate,
		url,
	}

	cmd := exec.CommandContext(ctx, p.binaryPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	if err := cmd.Start(); err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	started := time.Now()
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if opts.OnProgress != nil {
			if update, ok := parseProgressLine(line); ok {
				opts.OnProgress(update)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	localPath, sizeBytes, err := findDownloadedFile(p.scratchDir, outputTemplate)
	if err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	return models.DownloadResult{
		Success:           true,
		LocalFilePath:     localPath,
		SuggestedFilename: sanitizeFilename(url),
		FileSizeBytes:     sizeBytes,
		DownloadMs:        time.Since(started).Milliseconds(),
		DownloadHost:      hostForPlatform(url),
		MediaInfo:         models.MediaInfo{Platform: platformFromURL(url)},
	}, nil
}

func (p *YtdlpProvider) GetInfo(ctx context.Context, url string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binaryPath, "--dump-json", "--no-warnings", "--skip-download", url)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, err
	}

	duration := parseJSONIntField(string(out), "duration")
	return Info{DurationSec: duration}, nil
}

func (p *YtdlpProvider) DownloadAudio(ctx context.Context, url string) (models.DownloadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 90*time.Second)
	defer cancel()

	outputTemplate := fmt.Sprintf("%s/%s.%%(ext)s", p.scratchDir, uuid.New().String())
	args := []string{
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "320k",
		"--output", outputTemplate,
		url,
	}

	cmd := exec.CommandContext(ctx, p.binaryPath, args...)
	if err := cmd.Run(); err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	localPath, sizeBytes, err := findDownloadedFile(p.scratchDir, outputTemplate)
	if err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	return models.DownloadResult{
		Success:       true,
		LocalFilePath: localPath,
		FileSizeBytes: sizeBytes,
	}, nil
}

func parseProgressLine(line string) (ProgressUpdate, bool) {
	matches := progressLine.FindStringSubmatch(line)
	if matches == nil {
		return ProgressUpdate{}, false
	}

	totalValue, _ := strconv.ParseFloat(matches[2], 64)
	totalBytes := int64(totalValue * unitMultiplier(matches[3]))
	speedValue, _ := strconv.ParseFloat(matches[4], 64)
	speed := speedValue * unitMultiplier(matches[5])

	percentValue, _ := strconv.ParseFloat(matches[1], 64)
	downloaded := int64(float64(totalBytes) * percentValue / 100)

	return ProgressUpdate{
		DownloadedBytes:  downloaded,
		TotalBytes:       totalBytes,
		SpeedBytesPerSec: speed,
		Status:           "downloading",
	}, true
}

func unitMultiplier(unit string) float64 {
	switch strings.ToUpper(unit) {
	case "KIB", "KB":
		return 1024
	case "MIB", "MB":
		return 1024 * 1024
	case "GIB", "GB":
		return 1024 * 1024 * 1024
	default:
		return 1
	}
}
