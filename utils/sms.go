package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"

	"promopilot/config"
)

// SMSClient talks to the SMS gateway that owns the rented numbers. The
// gateway decides SMS vs MMS from the presence of a media URL.
type SMSClient struct {
	GatewayURL string
	APIKey     string
	Timeout    time.Duration
}

func NewSMSClient() *SMSClient {
	return &SMSClient{
		GatewayURL: config.AppConfig.SMSGatewayURL,
		APIKey:     config.AppConfig.SMSGatewayKey,
		Timeout:    15 * time.Second,
	}
}

type smsRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

type smsResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// Send posts one message to the gateway. Gateway error text is returned
// as-is so it lands verbatim in the send log.
func (s *SMSClient) Send(from, to, body, mediaURL string) (string, error) {
	if s.GatewayURL == "" {
		return "", fmt.Errorf("sms gateway not configured")
	}

	payload, err := json.Marshal(smsRequest{From: from, To: to, Body: body, MediaURL: mediaURL})
	if err != nil {
		return "", err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.GatewayURL + "/v1/messages")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.SetBody(payload)

	if err := fasthttp.DoTimeout(req, resp, s.Timeout); err != nil {
		return "", err
	}

	var result smsResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode())
	}
	if !result.Success {
		if result.Error != "" {
			return "", fmt.Errorf("%s", result.Error)
		}
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode())
	}
	return result.MessageID, nil
}
