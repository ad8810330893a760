// Package downloader provides functionality to download files from URLs.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DownloadFile fetches the content from the given URL.
// It returns the content as a byte slice or an error if the download fails
// or if the HTTP status code is not 200 OK.
func DownloadFile(ctx context.Context, client Doer, url string) ([]byte, error) {
	resp, err := get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", url, err)
	}
	return body, nil
}

// DownloadToFile streams the resource at url into dest, creating or
// truncating it. A partially written file is removed on failure so a later
// run does not mistake it for a finished download.
func DownloadToFile(ctx context.Context, client Doer, url, dest string) (int64, error) {
	resp, err := get(ctx, client, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	file, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		_ = os.Remove(dest)
		return n, fmt.Errorf("failed to read response body from %s: %w", url, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(dest)
		return n, fmt.Errorf("failed to write %s: %w", dest, closeErr)
	}
	return n, nil
}

func get(ctx context.Context, client Doer, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build GET request to %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform GET request to %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("failed to download from %s: received status code %d", url, resp.StatusCode)
	}
	return resp, nil
}
