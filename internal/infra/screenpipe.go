package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/focusfade/focusfade/internal/domain"
)

// ScreenpipeClient implements domain.CaptureSource against the local
// screenpipe search API.
type ScreenpipeClient struct {
	baseURL string
	client  *http.Client
}

// NewScreenpipeClient creates a capture client. baseURL defaults to
// the standard local screenpipe port.
func NewScreenpipeClient(baseURL string) *ScreenpipeClient {
	if baseURL == "" {
		baseURL = "http://localhost:3030"
	}
	return &ScreenpipeClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// searchResponse is the capture service's wire format. The data array
// may be absent or empty; both mean "no events", not an error.
type searchResponse struct {
	Data []struct {
		Content struct {
			Timestamp  time.Time `json:"timestamp"`
			AppName    string    `json:"appName"`
			WindowName string    `json:"windowName"`
			Text       string    `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// Query fetches events in the given window.
func (c *ScreenpipeClient) Query(ctx context.Context, q domain.CaptureQuery) ([]domain.Activity, error) {
	params := url.Values{}
	params.Set("content_type", q.ContentType)
	params.Set("start_time", q.StartTime.UTC().Format(time.RFC3339))
	params.Set("end_time", q.EndTime.UTC().Format(time.RFC3339))
	params.Set("limit", strconv.Itoa(q.Limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("capture error (status %d): %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	activities := make([]domain.Activity, 0, len(result.Data))
	for _, item := range result.Data {
		activities = append(activities, domain.Activity{
			Timestamp:  item.Content.Timestamp,
			AppName:    item.Content.AppName,
			WindowName: item.Content.WindowName,
			Text:       item.Content.Text,
		})
	}
	return activities, nil
}

// Ensure ScreenpipeClient implements domain.CaptureSource.
var _ domain.CaptureSource = (*ScreenpipeClient)(nil)
