//go:generate mockgen -destination=./mocks/download.go -package=mocks . Fetcher

// Package download implements the fetch collaborator: an HTTP download
// manager with bounded concurrency, checksum verification and cache reuse.
// Failures are per-item errors for the caller to handle; nothing here is
// fatal to the process.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkgerrors "github.com/ferropkg/ferrite/pkg/errors"
	"github.com/ferropkg/ferrite/pkg/fsutil"
	"github.com/ferropkg/ferrite/pkg/verify"
	"golang.org/x/sync/errgroup"
)

// Item is one download request.
type Item struct {
	ID       string
	URL      *url.URL
	Filename string // optional; derived from checksum or URL when empty
	Checksum string // optional expected SHA256 of the fetched file
}

// Options control a fetch batch.
type Options struct {
	Dir         string // destination directory, must be absolute
	Concurrency int    // 0 = default
}

// Fetcher is the interface the executor consumes. FetchAll returns a map of
// item IDs to local file paths.
type Fetcher interface {
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)
}

// Manager is the HTTP implementation of Fetcher.
type Manager struct {
	client    *http.Client
	userAgent string
}

// defaultConcurrency bounds the worker pool when Options.Concurrency is 0.
const defaultConcurrency = 4

// NewManager creates a download manager with the given timeout and user
// agent.
func NewManager(timeout time.Duration, userAgent string) *Manager {
	if userAgent == "" {
		userAgent = "ferrite/1.0"
	}
	return &Manager{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// FetchAll downloads all items concurrently on a bounded worker pool and
// returns a map of item IDs to downloaded file paths. The first error
// cancels the remaining downloads.
func (m *Manager) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return nil, fmt.Errorf("download dir must be absolute: %w: %s", pkgerrors.ErrInvalidPath, opts.Dir)
	}
	if err := os.MkdirAll(opts.Dir, fsutil.DirModeDefault); err != nil {
		return nil, pkgerrors.Wrap(err, "could not create download dir")
	}

	var mu sync.Mutex
	results := make(map[string]string, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, item := range items {
		g.Go(func() error {
			path, err := m.fetchOne(ctx, item, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			results[item.ID] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fetch downloads a single item and returns the path to the downloaded file.
func (m *Manager) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return "", fmt.Errorf("download dir must be absolute: %w: %s", pkgerrors.ErrInvalidPath, opts.Dir)
	}
	if err := os.MkdirAll(opts.Dir, fsutil.DirModeDefault); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}
	return m.fetchOne(ctx, item, opts)
}

func (m *Manager) fetchOne(ctx context.Context, item Item, opts Options) (string, error) {
	if item.URL == nil {
		return "", fmt.Errorf("item %s has no URL: %w", item.ID, pkgerrors.ErrTransactionIO)
	}
	absPath := filepath.Join(opts.Dir, selectFilename(item))
	if reuse, ok := tryReuseExisting(absPath, item.Checksum); ok {
		return reuse, nil
	}

	resp, err := m.doRequest(ctx, item)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	tmpPath, err := writeBodyToTemp(resp.Body, absPath)
	if err != nil {
		return "", err
	}
	if item.Checksum != "" {
		if err := verify.NewVerifier().Checksum(tmpPath, item.Checksum); err != nil {
			_ = os.Remove(tmpPath)
			return "", pkgerrors.Wrapf(err, "download of %s", item.URL)
		}
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not finalize file")
	}
	return absPath, nil
}

func selectFilename(item Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	if item.Checksum != "" {
		return item.Checksum
	}
	h := sha256.Sum256([]byte(item.URL.String()))
	return hex.EncodeToString(h[:])
}

// tryReuseExisting returns the cached file when it already exists with the
// expected contents.
func tryReuseExisting(absPath, checksum string) (string, bool) {
	st, err := os.Stat(absPath)
	if err != nil || st.Size() == 0 {
		return "", false
	}
	if checksum == "" {
		return absPath, true
	}
	if err := verify.NewVerifier().Checksum(absPath, checksum); err != nil {
		return "", false
	}
	return absPath, true
}

func (m *Manager) doRequest(ctx context.Context, item Item) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL.String(), http.NoBody)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.ErrTransactionIO, "download of %s failed: %v", item.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, pkgerrors.Wrapf(pkgerrors.ErrTransactionIO, "unexpected status %d for %s", resp.StatusCode, item.URL)
	}
	return resp, nil
}

func writeBodyToTemp(body io.Reader, absPath string) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(absPath), "dl-*.tmp")
	if err != nil {
		return "", pkgerrors.Wrap(err, "could not create temp file")
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not write file")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not sync file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", pkgerrors.Wrap(err, "could not close file")
	}
	return tmpPath, nil
}
