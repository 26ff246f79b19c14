package livefeed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"portfolio/internal/events"
	"portfolio/internal/logging"
	"portfolio/internal/models"
)

const maxFrameSize = 1 << 20

// ErrStreamClosed is returned by Run when the server ends the stream.
var ErrStreamClosed = errors.New("livefeed: stream closed by server")

// Client follows a remote guestbook: a snapshot from GET /api/guestbook kept
// current by the /api/guestbook/stream events.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the site at baseURL. httpClient must not
// have a Timeout, since the stream is long-lived.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

type listResponse struct {
	Success bool                    `json:"success"`
	Data    []models.GuestbookEntry `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Snapshot fetches the current list.
func (c *Client) Snapshot(ctx context.Context) ([]models.GuestbookEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/guestbook", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guestbook: %w", err)
	}
	defer resp.Body.Close()

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode guestbook (status %d): %w", resp.StatusCode, err)
	}
	if !body.Success {
		if body.Error != nil {
			return nil, fmt.Errorf("guestbook api: %s: %s", body.Error.Code, body.Error.Message)
		}
		return nil, fmt.Errorf("guestbook api: status %d", resp.StatusCode)
	}
	return body.Data, nil
}

// Run connects to the stream, loads the snapshot once the subscription is
// confirmed, then applies events until ctx ends or the server closes the
// stream. onChange is called with the state after every applied event and
// once with a nil event after the snapshot.
func (c *Client) Run(ctx context.Context, onChange func(*State, *events.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/guestbook/stream", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	logger := logging.Ctx(ctx)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	var state *State
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, ":"):
			// Subscribed before the snapshot, so nothing emitted in between
			// is missed; Apply drops the duplicates.
			if state == nil && strings.TrimSpace(line[1:]) == "ok" {
				initial, err := c.Snapshot(ctx)
				if err != nil {
					return err
				}
				state = New(initial)
				onChange(state, nil)
			}
		case strings.HasPrefix(line, "data:"):
			if state == nil {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			var ev events.Event
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				logger.Warn().Err(err).Msg("skipping malformed stream event")
				continue
			}
			if state.Apply(ev) {
				onChange(state, &ev)
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read failed: %w", err)
	}
	return ErrStreamClosed
}
