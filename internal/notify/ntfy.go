package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NtfySender delivers notifications by posting plain text to an ntfy.sh
// topic.
type NtfySender struct {
	topicURL string
	client   *http.Client
}

// NewNtfySender creates an NtfySender for the given topic URL, e.g.
// "https://ntfy.sh/my-trading-alerts". It uses a default HTTP client with a
// 10-second timeout.
func NewNtfySender(topicURL string) *NtfySender {
	return &NtfySender{
		topicURL: topicURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message body to the topic. The title travels in the Title
// header per the ntfy publish protocol.
func (s *NtfySender) Send(ctx context.Context, title, message string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("ntfy: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if title != "" {
		req.Header.Set("Title", title)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ntfy: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// Name returns the sender identifier.
func (s *NtfySender) Name() string {
	return "ntfy"
}
