package remote

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/eyedentify/sketchpad"
)

// maxImageBytes bounds a fetched image.
const maxImageBytes = 32 << 20

// ImageClient resolves asset references to decoded images. http and https
// references are fetched; anything else is read as a local path. It
// implements sketchpad.ImageSource.
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ sketchpad.ImageSource = (*ImageClient)(nil)

// NewImageClient creates an image fetcher. The API token is sent only to
// URLs under c's base URL.
func NewImageClient(c *Client) *ImageClient {
	return &ImageClient{httpClient: c.httpClient, baseURL: c.baseURL, token: c.token}
}

// Image implements sketchpad.ImageSource.
func (ic *ImageClient) Image(ctx context.Context, ref string) (image.Image, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ic.fetch(ctx, ref)
	}
	f, err := os.Open(ref)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return sketchpad.DecodeImage(f)
}

func (ic *ImageClient) fetch(ctx context.Context, ref string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if ic.token != "" && ic.baseURL != "" && strings.HasPrefix(ref, ic.baseURL+"/") {
		req.Header.Set("Authorization", "Bearer "+ic.token)
	}
	resp, err := ic.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return sketchpad.DecodeImage(io.LimitReader(resp.Body, maxImageBytes))
}
