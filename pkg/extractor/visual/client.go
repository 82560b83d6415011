// Package visual derives unified elements from a vision-model analysis of a
// device screenshot.
package visual

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/devicelab-dev/screenlens/pkg/logger"
)

// Client communicates with the vision-analysis service.
type Client struct {
	http    *http.Client
	probe   *http.Client
	baseURL string
}

// parseRequest is the analysis request payload.
type parseRequest struct {
	Base64Image  string `json:"base64_image"`
	UsePaddleOCR *bool  `json:"use_paddleocr,omitempty"`
}

// Detection is one element identified by the vision service. Bbox arrives
// already normalized to screen fractions.
type Detection struct {
	UUID          string     `json:"uuid"`
	Type          string     `json:"type"`
	Bbox          [4]float64 `json:"bbox"`
	Interactivity bool       `json:"interactivity"`
	Content       string     `json:"content"`
	Source        string     `json:"source"`
	Confidence    *float64   `json:"confidence,omitempty"`
}

// ParseResponse is the analysis response payload.
type ParseResponse struct {
	ParsedContentList []Detection `json:"parsed_content_list"`
	Latency           float64     `json:"latency"`
}

// NewClient creates a vision client. parseTimeout bounds one analysis round
// trip (image upload plus inference); healthTimeout bounds the probe.
func NewClient(serverURL string, parseTimeout, healthTimeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: parseTimeout},
		probe:   &http.Client{Timeout: healthTimeout},
		baseURL: strings.TrimRight(serverURL, "/"),
	}
}

// HealthCheck reports whether the service answers its probe endpoint. It is
// never cached; availability is re-checked before every analysis pass.
func (c *Client) HealthCheck() bool {
	resp, err := c.probe.Get(c.baseURL + "/probe/")
	if err != nil {
		logger.Warn("vision: health check failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		logger.Warn("vision: health check returned %d", resp.StatusCode)
		return false
	}
	return true
}

// Parse posts a base64-encoded screenshot for analysis.
func (c *Client) Parse(base64Image string, usePaddleOCR *bool) (*ParseResponse, error) {
	start := time.Now()

	payload, err := json.Marshal(parseRequest{
		Base64Image:  base64Image,
		UsePaddleOCR: usePaddleOCR,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/parse/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("vision: POST /parse/ [%v] failed: %v", elapsed, err)
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		logger.Error("vision: POST /parse/ [%v] status %d", elapsed, resp.StatusCode)
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	var parsed ParseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	logger.Debug("vision: POST /parse/ [%v] %d detections", elapsed, len(parsed.ParsedContentList))
	return &parsed, nil
}
