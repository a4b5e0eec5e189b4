package processing

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxImageBytes caps the size of a fetched remote image.
const MaxImageBytes = 20 << 20

var ErrImageTooLarge = errors.New("image is too large")

type ImageData struct {
	MediaType string
	Data      string // Base64 encoded string
}

// ProcessImageURL returns the media type and base64 payload of an image
// given as a data URI or a remote http(s) URL.
func ProcessImageURL(ctx context.Context, client *http.Client, url string) (*ImageData, error) {
	if strings.HasPrefix(url, "data:") {
		return parseDataURI(url)
	}
	return fetchRemoteImage(ctx, client, url)
}

func parseDataURI(uri string) (*ImageData, error) {
	// data:[<media type>][;base64],<data>
	comma := strings.Index(uri, ",")
	if comma == -1 {
		return nil, fmt.Errorf("invalid data URI")
	}

	meta := uri[:comma]
	data := uri[comma+1:]

	mediaType := "text/plain"
	parts := strings.Split(meta, ";")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "data:") && len(parts[0]) > 5 {
		mediaType = parts[0][5:]
	}

	isBase64 := false
	for _, p := range parts[1:] {
		if p == "base64" {
			isBase64 = true
			break
		}
	}

	if !isBase64 {
		return nil, fmt.Errorf("only base64 data URIs are supported for images")
	}

	return &ImageData{
		MediaType: mediaType,
		Data:      data,
	}, nil
}

func fetchRemoteImage(ctx context.Context, client *http.Client, url string) (*ImageData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(body) > MaxImageBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, MaxImageBytes)
	}

	return &ImageData{
		MediaType: contentType,
		Data:      base64.StdEncoding.EncodeToString(body),
	}, nil
}
