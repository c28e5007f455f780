// Package media downloads provider output into short-lived staging
// directories and hands it over to the host's media store.
package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/aretw0/ankihorse/pkg/core"
)

const (
	// DefaultTimeout is the default timeout for a single HTTP attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxTries bounds the attempts of a download.
	DefaultMaxTries = 3

	// DefaultMaxElapsed bounds the total time spent retrying a download.
	DefaultMaxElapsed = time.Minute

	// MaxResponseSize is the largest body accepted (50MB).
	MaxResponseSize = 50 * 1024 * 1024

	// UserAgent is sent with every download.
	UserAgent = "ankihorse/1.0"
)

// Expect describes what a successful download looks like.
type Expect struct {
	// Type is a MIME type prefix, e.g. "image/" or "audio/". Empty accepts any.
	Type string
	// MinSize is the smallest acceptable body, in bytes.
	MinSize int64
	// Ext overrides the file extension derived from the content type.
	Ext string
}

// Staged is a downloaded file waiting to be handed to a media store.
type Staged struct {
	Path        string
	ContentType string
	Size        int64
	dir         string
}

// Name is the file name under which the content was staged.
func (s *Staged) Name() string { return filepath.Base(s.Path) }

// Remove deletes the staging directory.
func (s *Staged) Remove() error {
	if s == nil || s.dir == "" {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Stager downloads files into per-invocation temporary directories.
// The zero value is ready to use.
type Stager struct {
	Client     *http.Client
	Dir        string
	MaxTries   uint
	MaxElapsed time.Duration
	Logger     *slog.Logger

	// InitialInterval is the first retry delay. Zero uses the backoff default.
	InitialInterval time.Duration
}

// NewStager creates a Stager with the default limits.
func NewStager(logger *slog.Logger) *Stager {
	return &Stager{
		Client:     &http.Client{Timeout: DefaultTimeout},
		MaxTries:   DefaultMaxTries,
		MaxElapsed: DefaultMaxElapsed,
		Logger:     logger,
	}
}

func (s *Stager) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func (s *Stager) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Get is a shorthand for fetching a URL with a GET request.
func (s *Stager) Get(ctx context.Context, url string, want Expect) (*Staged, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return s.Fetch(ctx, req, want)
}

// Fetch performs req and stages the body. Network errors, 429, 5xx and
// responses that fail the content check are retried with exponential backoff.
// Other non-2xx statuses fail immediately with an *HTTPError.
//
// Requests with a body must be replayable (http.NewRequest sets GetBody for
// the usual readers).
func (s *Stager) Fetch(ctx context.Context, req *http.Request, want Expect) (*Staged, error) {
	tries := s.MaxTries
	if tries == 0 {
		tries = DefaultMaxTries
	}
	elapsed := s.MaxElapsed
	if elapsed == 0 {
		elapsed = DefaultMaxElapsed
	}
	url := req.URL.Redacted()

	op := func() (*Staged, error) {
		attempt, err := replay(ctx, req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if attempt.Header.Get("User-Agent") == "" {
			attempt.Header.Set("User-Agent", UserAgent)
		}

		resp, err := s.client().Do(attempt)
		if err != nil {
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			herr := NewHTTPError(resp.StatusCode, url, resp.Status)
			if retryable(resp.StatusCode) {
				return nil, herr
			}
			return nil, backoff.Permanent(herr)
		}
		if resp.ContentLength > MaxResponseSize {
			return nil, backoff.Permanent(fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes",
				resp.ContentLength, MaxResponseSize))
		}
		return s.Save(resp.Body, resp.Header.Get("Content-Type"), want)
	}

	notify := func(err error, wait time.Duration) {
		s.logger().Debug("download failed, retrying", "url", url, "error", err, "wait", wait)
	}

	b := backoff.NewExponentialBackOff()
	if s.InitialInterval > 0 {
		b.InitialInterval = s.InitialInterval
	}

	staged, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(tries),
		backoff.WithMaxElapsedTime(elapsed),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return staged, nil
}

// Save stages the content of r. contentType may be empty, in which case the
// type is sniffed from the content.
func (s *Stager) Save(r io.Reader, contentType string, want Expect) (*Staged, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	mediaType := resolveType(contentType, body)
	if want.Type != "" && !strings.HasPrefix(mediaType, want.Type) {
		return nil, fmt.Errorf("%w: got %q, want %s*", ErrUnexpectedContent, mediaType, want.Type)
	}
	if int64(len(body)) < want.MinSize || len(body) == 0 {
		return nil, fmt.Errorf("%w: %d bytes is below the minimum of %d", ErrUnexpectedContent, len(body), want.MinSize)
	}

	dir, err := os.MkdirTemp(s.Dir, "ankihorse-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	ext := want.Ext
	if ext == "" {
		ext = Extension(mediaType)
	}
	sum := sha256.Sum256(body)
	path := filepath.Join(dir, hex.EncodeToString(sum[:8])+ext)

	if err := os.WriteFile(path, body, 0644); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}

	return &Staged{
		Path:        path,
		ContentType: mediaType,
		Size:        int64(len(body)),
		dir:         dir,
	}, nil
}

// Store hands staged to store and removes the staging directory whatever the
// outcome. It returns the media name assigned by the store.
func Store(ctx context.Context, store core.MediaStore, staged *Staged) (string, error) {
	defer func() {
		_ = staged.Remove()
	}()
	return store.AddFile(ctx, staged.Path)
}

var extensions = map[string]string{
	"image/jpeg":  ".jpg",
	"image/png":   ".png",
	"image/gif":   ".gif",
	"image/webp":  ".webp",
	"image/bmp":   ".bmp",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/wav":   ".wav",
	"audio/wave":  ".wav",
	"audio/x-wav": ".wav",
	"audio/ogg":   ".ogg",
	"audio/aac":   ".aac",
	"audio/flac":  ".flac",
}

// Extension maps a media type to a file extension, including the dot.
func Extension(mediaType string) string {
	if ext, ok := extensions[mediaType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func resolveType(header string, body []byte) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" || mediaType == "binary/octet-stream" {
		sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(body))
		return sniffed
	}
	return strings.ToLower(mediaType)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func replay(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return attempt, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body of %s cannot be replayed", req.URL.Redacted())
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	attempt.Body = body
	return attempt, nil
}

