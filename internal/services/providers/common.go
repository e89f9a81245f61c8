package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/socialgrab/downorc/internal/models"
)

var nonFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9 _-]`)

// sanitizeFilename strips a URL down to a safe, bounded-length local
// filename, mirroring downloader.py's _sanitize_filename.
func sanitizeFilename(sourceURL string) string {
	base := filepath.Base(sourceURL)
	safe := nonFilenameChar.ReplaceAllString(base, "")
	safe = strings.TrimSpace(safe)
	if len(safe) > 50 {
		safe = safe[:50]
	}
	if safe == "" {
		safe = "video"
	}
	return safe + ".mp4"
}

// findDownloadedFile globs the scratch directory for the file yt-dlp
// actually wrote (its chosen extension may differ from the template's
// placeholder), mirroring _find_downloaded_file's fallback search.
func findDownloadedFile(scratchDir, outputTemplate string) (string, int64, error) {
	prefix := strings.TrimSuffix(outputTemplate, ".%(ext)s")
	matches, err := filepath.Glob(prefix + ".*")
	if err != nil {
		return "", 0, err
	}
	if len(matches) == 0 {
		return "", 0, fmt.Errorf("downloaded file not found for prefix %s", prefix)
	}

	path := matches[0]
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	return path, info.Size(), nil
}

// statFile returns the size of an already-known local path, used by
// adapters that write to a fixed filename rather than a templated one.
func statFile(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// fetchToScratch downloads a resolved media URL into a uniquely-named
// file under scratchDir, shared by the HTTP-backed adapters
// (RapidAPIProvider, SaveNowProvider).
func fetchToScratch(ctx context.Context, client *http.Client, mediaURL, scratchDir string) (string, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("fetch failed with status %d", resp.StatusCode)
	}

	ext := "mp4"
	if strings.Contains(mediaURL, ".jpg") || strings.Contains(mediaURL, ".jpeg") {
		ext = "jpg"
	}
	localPath := filepath.Join(scratchDir, fmt.Sprintf("%s.%s", uuid.New().String(), ext))

	out, err := os.Create(localPath)
	if err != nil {
		return "", 0, err
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", 0, err
	}

	return localPath, written, nil
}

func platformFromURL(url string) models.Platform {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "youtube"):
		return models.PlatformYouTube
	case strings.Contains(lower, "tiktok"):
		return models.PlatformTikTok
	case strings.Contains(lower, "instagram"):
		return models.PlatformInstagram
	case strings.Contains(lower, "pinterest") || strings.Contains(lower, "pin.it"):
		return models.PlatformPinterest
	default:
		return ""
	}
}

// hostForPlatform is the per-platform fallback download_host used when
// a provider doesn't expose the CDN host it actually pulled bytes from
// (§4.7).
func hostForPlatform(url string) string {
	switch platformFromURL(url) {
	case models.PlatformYouTube:
		return "googlevideo.com"
	case models.PlatformTikTok:
		return "tiktokcdn.com"
	case models.PlatformInstagram:
		return "cdninstagram.com"
	case models.PlatformPinterest:
		return "pinimg.com"
	default:
		return "unknown"
	}
}

// parseJSONIntField does a minimal, dependency-free scrape of a single
// top-level integer field out of yt-dlp's --dump-json output, enough
// for the duration preflight without pulling in a full JSON decode of
// an object whose shape varies per extractor.
func parseJSONIntField(jsonText, field string) int {
	marker := fmt.Sprintf(`"%s":`, field)
	idx := strings.Index(jsonText, marker)
	if idx == -1 {
		return 0
	}
	rest := jsonText[idx+len(marker):]
	rest = strings.TrimLeft(rest, " ")
	end := strings.IndexAny(rest, ",}")
	if end == -1 {
		return 0
	}
	value, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0
	}
	return value
}
