// Package fetch downloads and unpacks the FDA nutrition open data
// archive.
package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/twfooddata/nutridb/internal/observability"
)

// archiveName is the temporary file the dataset archive is saved to
// before extraction.
const archiveName = "food_data.zip"

// ProgressFunc receives the cumulative bytes downloaded and the total
// reported by the server. Total is -1 when the server does not send a
// Content-Length.
type ProgressFunc func(downloaded, total int64)

// Config holds fetcher configuration.
type Config struct {
	Timeout time.Duration
}

// Fetcher downloads the published dataset archive and extracts the
// JSON payload from it.
type Fetcher struct {
	httpClient *http.Client
	logger     *observability.Logger
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg Config, logger *observability.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithComponent("fetch"),
	}
}

// Fetch downloads the archive at url into dataDir, extracts it, and
// returns the path of the extracted JSON file. The archive itself is
// removed after extraction. onProgress may be nil.
func (f *Fetcher) Fetch(ctx context.Context, url, dataDir string, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}

	archivePath := filepath.Join(dataDir, archiveName)
	f.logger.Info().Str("url", url).Str("dest", archivePath).Msg("Downloading dataset archive")

	if err := f.download(ctx, url, archivePath, onProgress); err != nil {
		return "", err
	}

	f.logger.Info().Msg("Extracting archive")
	if err := extractArchive(archivePath, dataDir); err != nil {
		return "", err
	}

	jsonPath, err := findJSON(dataDir)
	if err != nil {
		return "", err
	}

	if err := os.Remove(archivePath); err != nil {
		f.logger.Warn().Err(err).Msg("Failed to remove archive after extraction")
	}

	f.logger.Info().Str("path", jsonPath).Msg("Dataset ready")
	return jsonPath, nil
}

func (f *Fetcher) download(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download dataset: unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}

	var body io.Reader = resp.Body
	if onProgress != nil {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, onProgress: onProgress}
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		return fmt.Errorf("save archive: %w", err)
	}
	return out.Close()
}

// extractArchive unpacks every entry of the zip into destDir, refusing
// entries that would escape it.
func extractArchive(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	cleanDest := filepath.Clean(destDir)
	for _, entry := range reader.File {
		target := filepath.Join(cleanDest, entry.Name)
		if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes destination: %s", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
		if err := extractFile(entry, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(entry *zip.File, target string) error {
	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("open archive entry: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return dst.Close()
}

// findJSON returns the first JSON file in dir in lexical order.
func findJSON(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("scan data dir: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no JSON file found in archive")
	}
	sort.Strings(matches)
	return matches[0], nil
}

// progressReader counts bytes as they stream through and reports them
// to the progress callback.
type progressReader struct {
	r          io.Reader
	total      int64
	downloaded int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.downloaded += int64(n)
		p.onProgress(p.downloaded, p.total)
	}
	return n, err
}
