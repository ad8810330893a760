// Package downloader_test contains tests for the downloader package.
package downloader_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlo-tools/xlo/internal/core/downloader"
)

func TestDownloadFile_Success(t *testing.T) {
	t.Parallel()
	expectedContent := "Hello, Almandine!"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(expectedContent))
		assert.NoError(t, err, "Failed to write response in mock server")
	}))
	defer server.Close()

	content, err := downloader.DownloadFile(context.Background(), server.Client(), server.URL)
	require.NoError(t, err, "DownloadFile returned an unexpected error")
	assert.Equal(t, []byte(expectedContent), content, "Downloaded content does not match expected content")
}

func TestDownloadFile_HTTPErrorNotFound(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := downloader.DownloadFile(context.Background(), server.Client(), server.URL)
	require.Error(t, err, "DownloadFile should have returned an error for 404")
	assert.Contains(t, err.Error(), "failed to download from", "Error message mismatch")
	assert.Contains(t, err.Error(), "received status code 404", "Error message mismatch for status code")
}

func TestDownloadFile_NetworkError_InvalidURL(t *testing.T) {
	t.Parallel()
	invalidURL := "http://invalid-url-that-should-not-exist-for-testing.localdomain"

	_, err := downloader.DownloadFile(context.Background(), http.DefaultClient, invalidURL)
	require.Error(t, err, "DownloadFile should have returned an error for an invalid/unreachable URL")
	assert.Contains(t, err.Error(), fmt.Sprintf("failed to perform GET request to %s", invalidURL), "Error message mismatch for network error")
}

func TestDownloadToFile_Success(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ID3 fake mp3"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "lesson_01.mp3")
	require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer"), 0644))

	n, err := downloader.DownloadToFile(context.Background(), server.Client(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("ID3 fake mp3")), n)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ID3 fake mp3", string(data), "existing file should be truncated")
}

func TestDownloadToFile_StatusErrorLeavesNoFile(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "x.bin")
	_, err := downloader.DownloadToFile(context.Background(), server.Client(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received status code 500")
	assert.NoFileExists(t, dest)
}

func TestDownloadToFile_ReadBodyErrorRemovesPartial(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("webserver doesn't support hijacking")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("failed to hijack connection: %v", err)
			return
		}
		// Declare more bytes than are sent, then drop the connection.
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\npartial data"))
		_ = conn.Close()
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "partial.bin")
	_, err := downloader.DownloadToFile(context.Background(), server.Client(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("failed to read response body from %s", server.URL))
	assert.NoFileExists(t, dest)
}

func TestDownloadToFile_CanceledContext(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("never"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := downloader.DownloadToFile(ctx, server.Client(), server.URL, filepath.Join(t.TempDir(), "f"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
