package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/validation"
)

// Fetcher turns local paths and http(s) URLs into upload candidates
type Fetcher struct {
	HTTPClient *http.Client
	// MaxDownload caps how much of a remote body is read
	MaxDownload int64
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		MaxDownload: validation.MaxFileSize + 1,
	}
}

// Candidates resolves every source. A source that cannot be resolved is
// logged and skipped; it never aborts the rest.
func (f *Fetcher) Candidates(ctx context.Context, sources []string) []validation.Candidate {
	candidates := make([]validation.Candidate, 0, len(sources))
	for _, src := range sources {
		var (
			c   validation.Candidate
			err error
		)
		if isURL(src) {
			c, err = f.fromURL(ctx, src)
		} else {
			c, err = fromFile(src)
		}
		if err != nil {
			slog.Warn("Skipping image source", "source", src, "err", err)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fromFile(p string) (validation.Candidate, error) {
	info, err := os.Stat(p)
	if err != nil {
		return validation.Candidate{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return validation.Candidate{}, fmt.Errorf("%s is a directory", p)
	}

	mediaType, err := detectFileType(p)
	if err != nil {
		return validation.Candidate{}, err
	}

	return validation.Candidate{
		Name:      filepath.Base(p),
		MediaType: mediaType,
		Size:      info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(p)
		},
	}, nil
}

// detectFileType prefers the extension and falls back to content sniffing
func detectFileType(p string) (string, error) {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(p))); t != "" {
		mediaType, _, _ := mime.ParseMediaType(t)
		if mediaType != "" {
			return mediaType, nil
		}
	}

	file, err := os.Open(p)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(head[:n]))
	return mediaType, nil
}

func (f *Fetcher) fromURL(ctx context.Context, rawURL string) (validation.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return validation.Candidate{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return validation.Candidate{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return validation.Candidate{}, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.MaxDownload))
	if err != nil {
		return validation.Candidate{}, fmt.Errorf("failed to read image data: %w", err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	name := "image"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." && base != "" {
			name = base
		}
	}

	c := validation.FromBytes(name, mediaType, data)
	if resp.ContentLength > c.Size {
		c.Size = resp.ContentLength
	}
	return c, nil
}
