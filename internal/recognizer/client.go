package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"facemark/internal/directory"
)

// Client calls a face recognition microservice's 1:N search endpoint.
// It satisfies Recognizer so a real service can replace the simulator
// with no ledger changes.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	Threshold float64
}

// NewClient creates a client with a generous timeout; face processing
// can take time.
func NewClient(baseURL string, threshold float64) *Client {
	return &Client{
		BaseURL:   baseURL,
		Threshold: threshold,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Identify posts the frame to /search and returns the best gallery
// match above the threshold. A below-threshold or empty result maps to
// ErrNoMatch.
func (c *Client) Identify(ctx context.Context, frame Frame, pool []directory.Student) (Match, error) {
	if frame == "" {
		return Match{}, fmt.Errorf("frame required")
	}

	body, _ := json.Marshal(map[string]string{"image": string(frame)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return Match{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Match{}, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Match{}, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Matches []struct {
			UserID     string  `json:"user_id"`
			Similarity float64 `json:"similarity"`
		} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Match{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Matches) == 0 || out.Matches[0].Similarity < c.Threshold {
		return Match{}, ErrNoMatch
	}

	best := out.Matches[0]
	for _, s := range pool {
		if s.ID == best.UserID {
			return Match{StudentID: best.UserID, Similarity: best.Similarity}, nil
		}
	}
	// The gallery knows a face the directory no longer has.
	return Match{}, ErrNoMatch
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}
