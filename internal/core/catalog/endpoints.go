package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// PublicContainer holds the assets shared by every UI runtime version.
const PublicContainer = "public"

// Remote names matching this pattern are served from the shared asset path
// rather than the object's own container.
var sharedAssetRegex = regexp.MustCompile(`asset-[a-z.]+$`)

// BaseURL normalizes a configured host into a base URL. Hosts without a
// scheme are served over https.
func BaseURL(host string) (string, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return "", fmt.Errorf("failed to parse host '%s': %w", host, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid host '%s': missing hostname", host)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (c *Client) loginURL() string {
	return c.base + "/api/users/login?rememberMe=false"
}

func (c *Client) langsURL() string {
	return c.base + "/api/Langs"
}

func (c *Client) objectsURL(filterJSON string) string {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("filter", filterJSON)
	return c.base + "/api/LearningObjects/?" + q.Encode()
}

func (c *Client) contentURL(containerID string) string {
	return c.DownloadURL(containerID, "content.json")
}

func (c *Client) fileListURL(containerID string) string {
	return fmt.Sprintf("%s/api/LearningObjects/%s/files", c.base, url.PathEscape(containerID))
}

func (c *Client) containersURL() string {
	return c.base + "/api/LearningObjectFC"
}

func (c *Client) containerFilesURL(container string) string {
	return fmt.Sprintf("%s/api/LearningObjectFC/%s/files", c.base, url.PathEscape(container))
}

// DownloadURL resolves the download endpoint for a file of a container.
func (c *Client) DownloadURL(container, fileName string) string {
	if sharedAssetRegex.MatchString(fileName) {
		return fmt.Sprintf("%s/any/path/%s", c.base, url.PathEscape(fileName))
	}
	return fmt.Sprintf("%s/api/LearningObjectFC/%s/download/%s", c.base, url.PathEscape(container), escapePath(fileName))
}

// escapePath escapes each segment of a slash-separated name.
func escapePath(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
