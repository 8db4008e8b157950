// Package fetch implements the single-artifact verified downloader: a
// streaming HTTP GET with a SHA-256 accumulator, atomic commit via rename,
// and bounded retries. It is the hottest path in the mirror engine and the
// primary source of failure modes (see SPEC_FULL.md §4.1).
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"tcmirror/pkg/fsutil"
)

// streamBufferSize bounds per-fetch memory to a fixed-size read buffer.
const streamBufferSize = 64 * 1024

// sidecarMaxBytes bounds the in-memory sidecar fetch; a .sha256 file is a
// handful of bytes, never megabytes.
const sidecarMaxBytes = 1024

// HTTPDoer is the minimal collaborator contract the fetcher needs from an
// HTTP client: perform a GET-equivalent request and hand back a streamable
// response. *http.Client satisfies this directly.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and verifies individual artifacts.
type Fetcher struct {
	Client    HTTPDoer
	UserAgent string
}

// New builds a Fetcher around client, defaulting to http.DefaultClient when
// client is nil.
func New(client HTTPDoer, userAgent string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{Client: client, UserAgent: userAgent}
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	return resp, nil
}

// Download fetches url into dest, verifying the bytes against
// expectedDigest (a lowercase hex SHA-256) when non-empty. If dest already
// exists and force is false, it returns success without any network I/O.
// Transient failures (network, I/O, hash mismatch) are retried up to
// retries additional times; a 404-equivalent response is never retried and
// surfaces as *ErrNotFound.
func (f *Fetcher) Download(ctx context.Context, url, dest, expectedDigest string, retries int, force bool) error {
	if fsutil.FileExists(dest) && !force {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = f.oneDownload(ctx, url, dest, expectedDigest)
		if lastErr == nil {
			return nil
		}
		var notFound *ErrNotFound
		if isNotFound(lastErr, &notFound) {
			return lastErr
		}
	}
	return lastErr
}

func isNotFound(err error, target **ErrNotFound) bool {
	nf, ok := err.(*ErrNotFound)
	if ok {
		*target = nf
	}
	return ok
}

func (f *Fetcher) oneDownload(ctx context.Context, url, dest, expectedDigest string) error {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &ErrNotFound{URL: url}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	partPath := fsutil.PartPath(dest)
	out, err := fsutil.CreateFileCreateDir(partPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", partPath, err)
	}

	hasher := sha256.New()
	var writer io.Writer = out
	if expectedDigest != "" {
		writer = io.MultiWriter(out, hasher)
	}

	buf := make([]byte, streamBufferSize)
	_, copyErr := io.CopyBuffer(writer, resp.Body, buf)
	closeErr := out.Close()

	if copyErr != nil {
		return fmt.Errorf("read body of %s: %w", url, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", partPath, closeErr)
	}

	if expectedDigest != "" {
		actual := hex.EncodeToString(hasher.Sum(nil))
		if actual != expectedDigest {
			return &ErrMismatchedHash{URL: url, Expected: expectedDigest, Actual: actual}
		}
	}

	return fsutil.AtomicRename(partPath, dest)
}

// DownloadWithSidecar fetches url+".sha256" as the authoritative digest,
// downloads url against that digest, and on success persists the sidecar
// text alongside dest. The sidecar is written only after the artifact is
// committed, so it never leads the file it describes.
func (f *Fetcher) DownloadWithSidecar(ctx context.Context, url, dest string, retries int, force bool) error {
	sidecarText, err := f.downloadSidecarText(ctx, url)
	if err != nil {
		return err
	}
	if len(sidecarText) < 64 {
		return fmt.Errorf("sidecar for %s is too short to contain a digest", url)
	}
	digest := sidecarText[:64]

	if err := f.Download(ctx, url, dest, digest, retries, force); err != nil {
		return err
	}

	return fsutil.WriteFileCreateDir(fsutil.SidecarPath(dest), []byte(sidecarText))
}

func (f *Fetcher) downloadSidecarText(ctx context.Context, url string) (string, error) {
	resp, err := f.get(ctx, url+".sha256")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", &ErrNotFound{URL: url + ".sha256"}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s.sha256: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, sidecarMaxBytes))
	if err != nil {
		return "", fmt.Errorf("read sidecar for %s: %w", url, err)
	}
	return string(data), nil
}
