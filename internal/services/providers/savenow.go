package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/socialgrab/downorc/internal/models"
)

// SaveNowProvider is the YouTube chain's third fallback (§4.4's
// default table, §8 scenario 2), an HTTP downloader API similar in
// shape to RapidAPIProvider but with its own endpoint and response
// envelope.
type SaveNowProvider struct {
	baseURL    string
	scratchDir string
	client     *http.Client
}

func NewSaveNowProvider(baseURL, scratchDir string) *SaveNowProvider {
	return &SaveNowProvider{baseURL: baseURL, scratchDir: scratchDir, client: &http.Client{}}
}

func (p *SaveNowProvider) Name() string { return "savenow" }

type saveNowResponse struct {
	DownloadURL string `json:"download_url"`
	Title       string `json:"title"`
	DurationSec int    `json:"duration_sec"`
}

func (p *SaveNowProvider) Download(ctx context.Context, url string, opts Options) (models.DownloadResult, error) {
	timeout := time.Duration(opts.DownloadTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/resolve", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}
	query := req.URL.Query()
	query.Set("url", url)
	req.URL.RawQuery = query.Encode()

	resp, err := p.client.Do(req)
	if err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("savenow returned status %d", resp.StatusCode)
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	var decoded saveNowResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}
	if decoded.DownloadURL == "" {
		err := fmt.Errorf("no video formats returned")
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	started := time.Now()
	localPath, size, err := fetchToScratch(ctx, p.client, decoded.DownloadURL, p.scratchDir)
	if err != nil {
		return models.DownloadResult{ErrorText: err.Error()}, err
	}

	return models.DownloadResult{
		Success:           true,
		LocalFilePath:     localPath,
		SuggestedFilename: sanitizeFilename(decoded.Title + ".mp4"),
		FileSizeBytes:     size,
		DownloadMs:        time.Since(started).Milliseconds(),
		DownloadHost:      "savenow.to",
		MediaInfo: models.MediaInfo{
			Title:       decoded.Title,
			Platform:    models.PlatformYouTube,
		},
	}, nil
}
