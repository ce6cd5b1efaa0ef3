package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	appLog "gigcal/internal/log"
)

// snapshotEntry is the last good body of a remote snapshot plus the
// validators needed for a conditional GET.
type snapshotEntry struct {
	ETag         string
	LastModified string
	Body         []byte
	UpdatedAt    time.Time
}

// SnapshotReader reads event snapshots from local files or http(s) URLs.
// Remote bodies are remembered in memory so unchanged snapshots are
// revalidated with ETag / Last-Modified and outages fall back to the last
// good copy.
type SnapshotReader struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]snapshotEntry
}

// NewSnapshotReader creates a reader. A nil client gets a 15s timeout.
func NewSnapshotReader(client *http.Client) *SnapshotReader {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SnapshotReader{
		client: client,
		cache:  make(map[string]snapshotEntry),
	}
}

// Read returns the snapshot body at location and whether it came from the
// in-memory copy.
func (r *SnapshotReader) Read(ctx context.Context, location string) ([]byte, bool, error) {
	if location == "" {
		return nil, false, errors.New("snapshot location is empty")
	}
	if !isRemote(location) {
		body, err := os.ReadFile(location)
		return body, false, err
	}
	return r.fetch(ctx, location)
}

func (r *SnapshotReader) fetch(ctx context.Context, url string) ([]byte, bool, error) {
	r.mu.Lock()
	cached, hasCached := r.cache[url]
	r.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")
	if cached.ETag != "" {
		req.Header.Set("If-None-Match", cached.ETag)
	}
	if cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if hasCached {
			appLog.Error("snapshot fetch network error, using last good copy", err, "url", redactURL(url))
			return cached.Body, true, nil
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, err
		}
		r.mu.Lock()
		r.cache[url] = snapshotEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
			UpdatedAt:    time.Now().UTC(),
		}
		r.mu.Unlock()
		appLog.Debug("snapshot fetched", "url", redactURL(url), "bytes", len(body))
		return body, false, nil

	case http.StatusNotModified:
		if !hasCached {
			return nil, false, errors.New("received 304 Not Modified but no cached snapshot")
		}
		appLog.Debug("snapshot not modified", "url", redactURL(url))
		return cached.Body, true, nil

	default:
		if hasCached {
			appLog.Error("snapshot fetch non-OK, using last good copy", errors.New(resp.Status), "url", redactURL(url), "status", resp.StatusCode)
			return cached.Body, true, nil
		}
		return nil, false, fmt.Errorf("fetch %s: %s", redactURL(url), resp.Status)
	}
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// redactURL keeps only scheme and host so tokens in paths or query strings
// never reach the log.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "snapshot://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	} else if j := strings.IndexByte(rest, '?'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redactedSuffix
}
