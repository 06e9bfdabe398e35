package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"promopilot/config"
)

// ActivityClient pings the activity-sync service after a user had
// successful automation sends, so dashboards refresh their feeds.
type ActivityClient struct {
	BaseURL string
	Timeout time.Duration
}

func NewActivityClient() *ActivityClient {
	return &ActivityClient{
		BaseURL: config.AppConfig.ActivitySyncURL,
		Timeout: 5 * time.Second,
	}
}

func (a *ActivityClient) Notify(userID uint) error {
	if a.BaseURL == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]uint{"user_id": userID})
	if err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.BaseURL + "/sync")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(payload)

	if err := fasthttp.DoTimeout(req, resp, a.Timeout); err != nil {
		return err
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("activity sync returned status %d", resp.StatusCode())
	}
	return nil
}
