package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"promopilot/config"
)

// CompositorClient calls the image compositing service that renders
// overlay text (e.g. "Happy birthday, Ana!") onto a base image.
type CompositorClient struct {
	BaseURL string
	Timeout time.Duration
}

func NewCompositorClient() *CompositorClient {
	return &CompositorClient{
		BaseURL: config.AppConfig.CompositorURL,
		Timeout: 30 * time.Second,
	}
}

func (c *CompositorClient) Composite(baseImageURL, text string) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("compositor not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"base_image": baseImageURL,
		"text":       text,
	})
	if err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.BaseURL + "/composite")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := fasthttp.DoTimeout(req, resp, c.Timeout); err != nil {
		return nil, err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("compositor returned status %d", resp.StatusCode())
	}

	// Body is the rendered image bytes
	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

// MediaStoreClient uploads rendered media to object storage and returns
// the public URL.
type MediaStoreClient struct {
	BaseURL string
	Timeout time.Duration
}

func NewMediaStoreClient() *MediaStoreClient {
	return &MediaStoreClient{
		BaseURL: config.AppConfig.MediaStoreURL,
		Timeout: 30 * time.Second,
	}
}

func (m *MediaStoreClient) Upload(data []byte) (string, error) {
	if m.BaseURL == "" {
		return "", fmt.Errorf("media store not configured")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/uploads/%s.png", m.BaseURL, uuid.New().String()))
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.SetContentType("image/png")
	req.SetBody(data)

	if err := fasthttp.DoTimeout(req, resp, m.Timeout); err != nil {
		return "", err
	}
	if resp.StatusCode() != fasthttp.StatusOK && resp.StatusCode() != fasthttp.StatusCreated {
		return "", fmt.Errorf("media store returned status %d", resp.StatusCode())
	}

	var result struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil || result.URL == "" {
		return "", fmt.Errorf("media store returned no url")
	}
	return result.URL, nil
}
