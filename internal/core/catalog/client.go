// Package catalog talks to the remote content API: login, language table,
// learning object listing, per-object content and file lists, and the UI
// runtime containers.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xlo-tools/xlo/internal/core/downloader"
	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/model"
)

// Client is bound to one host. After Login every request carries the
// session token in the authorization header.
type Client struct {
	base    string
	timeout time.Duration
	api     *http.Client
	files   *http.Client
	token   string
}

// New returns an unauthenticated client for host. A zero timeout means 60s.
func New(host string, timeout time.Duration) (*Client, error) {
	base, err := BaseURL(host)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &Client{base: base, timeout: timeout}
	c.bind(http.DefaultTransport)
	return c, nil
}

// NewWithToken returns a client that reuses an existing session token.
func NewWithToken(host, token string, timeout time.Duration) (*Client, error) {
	c, err := New(host, timeout)
	if err != nil {
		return nil, err
	}
	c.token = token
	c.bind(http.DefaultTransport)
	return c, nil
}

// bind rebuilds the HTTP clients around base so that they carry the current
// token. Metadata calls are bounded by the timeout as a whole; file downloads
// only bound the wait for response headers.
func (c *Client) bind(base http.RoundTripper) {
	var rt http.RoundTripper = base
	if c.token != "" {
		rt = &authTransport{base: base, token: c.token}
	}
	c.api = &http.Client{Transport: rt, Timeout: c.timeout}

	var fileRT http.RoundTripper = rt
	if t, ok := base.(*http.Transport); ok {
		ft := t.Clone()
		ft.ResponseHeaderTimeout = c.timeout
		fileRT = ft
		if c.token != "" {
			fileRT = &authTransport{base: ft, token: c.token}
		}
	}
	c.files = &http.Client{Transport: fileRT}
}

// Token returns the session token, empty before Login.
func (c *Client) Token() string {
	return c.token
}

// FileClient is the HTTP client to use for asset downloads.
func (c *Client) FileClient() downloader.Doer {
	return c.files
}

type authTransport struct {
	base  http.RoundTripper
	token string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("authorization", t.token)
	return t.base.RoundTrip(r)
}

// Login exchanges credentials for a session token. Users containing '@' log
// in by email. Any non-2xx answer is an authentication failure.
func (c *Client) Login(ctx context.Context, user, password string) (string, error) {
	body := map[string]string{"password": password}
	if strings.Contains(user, "@") {
		body["email"] = user
	} else {
		body["username"] = user
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL(), bytes.NewReader(payload))
	if err != nil {
		return "", failure.New(failure.ErrAuth, user, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.api.Do(req)
	if err != nil {
		return "", failure.New(failure.ErrAuth, user, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", failure.New(failure.ErrAuth, user, fmt.Errorf("login returned status code %d", resp.StatusCode))
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", failure.New(failure.ErrAuth, user, fmt.Errorf("failed to decode login response: %w", err))
	}
	if session.ID == "" {
		return "", failure.New(failure.ErrAuth, user, fmt.Errorf("login response carried no session token"))
	}

	c.token = session.ID
	c.bind(http.DefaultTransport)
	return c.token, nil
}

// Langs returns the language table used to map locales to script families.
func (c *Client) Langs(ctx context.Context) ([]model.Lang, error) {
	var langs []model.Lang
	if err := c.getJSON(ctx, c.langsURL(), &langs); err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, "languages", err)
	}
	return langs, nil
}

// ListObjects returns the learning objects matching filter, in server order.
func (c *Client) ListObjects(ctx context.Context, filter map[string]any) ([]*model.LearningObject, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode package filter: %w", err)
	}
	var objects []*model.LearningObject
	if err := c.getJSON(ctx, c.objectsURL(string(filterJSON)), &objects); err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, "object list", err)
	}
	for _, lo := range objects {
		if lo.ContainerID == "" {
			lo.ContainerID = lo.ID
		}
	}
	return objects, nil
}

// FetchContent downloads and decodes an object's content.json.
func (c *Client) FetchContent(ctx context.Context, containerID string) (*model.ContentDocument, error) {
	data, err := downloader.DownloadFile(ctx, c.api, c.contentURL(containerID))
	if err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, containerID, err)
	}
	doc, err := model.ParseContentDocument(data)
	if err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, containerID, err)
	}
	if doc.ContainerID == "" {
		doc.ContainerID = containerID
	}
	return doc, nil
}

// FetchFileList returns the remote assets of an object.
func (c *Client) FetchFileList(ctx context.Context, containerID string) ([]model.FileInfo, error) {
	files, err := c.fileList(ctx, c.fileListURL(containerID))
	if err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, containerID, err)
	}
	return files, nil
}

func (c *Client) fileList(ctx context.Context, url string) ([]model.FileInfo, error) {
	data, err := downloader.DownloadFile(ctx, c.api, url)
	if err != nil {
		return nil, err
	}
	// The API answers with a bare string when it cannot list a container.
	var msg string
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &msg) == nil {
		return nil, fmt.Errorf("file list unavailable: %s", msg)
	}
	var files []model.FileInfo
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to decode file list from %s: %w", url, err)
	}
	return files, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build GET request to %s: %w", url, err)
	}
	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("failed to fetch %s: received status code %d: %w", url, resp.StatusCode, failure.ErrAuth)
		}
		return fmt.Errorf("failed to fetch %s: received status code %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
