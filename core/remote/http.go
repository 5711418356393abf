package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shapesync/core/retry"
	"shapesync/core/token"
)

// streamScanBuffer bounds the size of a single change message on the wire.
const streamScanBuffer = 1 << 20

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	endpoint string
	tokens   *token.Provider
	http     *http.Client
	stream   *http.Client
}

// NewHTTPClient creates a client for the replication API at the given base
// endpoint. Snapshot and push requests are bounded by timeout; the
// subscription client has no overall deadline (the stream is long-lived)
// but uses strict connection setup timeouts.
func NewHTTPClient(cfg Config, tokens *token.Provider) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	return &HTTPClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		tokens:   tokens,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		stream:   &http.Client{Transport: transport},
	}
}

// wireMessage matches the stream's JSON line format.
type wireMessage struct {
	Headers struct {
		Operation string `json:"operation"`
		LSN       int64  `json:"lsn"`
		Control   string `json:"control,omitempty"`
	} `json:"headers"`
	Value map[string]any `json:"value"`
}

// Snapshot implements Client.
func (c *HTTPClient) Snapshot(ctx context.Context, table string, columns []string) ([]map[string]any, error) {
	u := fmt.Sprintf("%s/shape?%s", c.endpoint, shapeQuery(table, columns, -1))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", table, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "snapshot", table); err != nil {
		return nil, err
	}

	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", table, err)
	}

	// Zero rows is a valid snapshot, never an error.
	if body.Rows == nil {
		return []map[string]any{}, nil
	}
	return body.Rows, nil
}

// Subscribe implements Client.
func (c *HTTPClient) Subscribe(ctx context.Context, table string, columns []string, since int64) (<-chan ChangeMessage, error) {
	u := fmt.Sprintf("%s/shape/stream?%s", c.endpoint, shapeQuery(table, columns, since))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}
	if err := c.checkStatus(resp, "subscribe", table); err != nil {
		resp.Body.Close()
		return nil, err
	}

	out := make(chan ChangeMessage)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), streamScanBuffer)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}

			var wire wireMessage
			if err := json.Unmarshal(line, &wire); err != nil {
				// A single garbled line is dropped; the cursor ensures a
				// later resubscribe replays anything missed.
				continue
			}

			msg := ChangeMessage{
				Operation: wire.Headers.Operation,
				Row:       wire.Value,
				LSN:       wire.Headers.LSN,
				Control:   wire.Headers.Control,
			}

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case out <- ChangeMessage{Err: fmt.Errorf("stream %s: %w", table, err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// PushMutations implements Client.
func (c *HTTPClient) PushMutations(ctx context.Context, batch []Mutation) error {
	if len(batch) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]any{"mutations": batch})
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode mutation batch: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/mutations", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push mutations: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.tokens.Invalidate()
		return &token.AuthError{Status: resp.StatusCode, Err: fmt.Errorf("mutation push rejected")}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Validation rejections cannot be fixed by retrying.
		return retry.Permanent(fmt.Errorf("mutation push rejected with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("mutation push failed with status %d", resp.StatusCode)
	}
}

func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

func (c *HTTPClient) checkStatus(resp *http.Response, op, table string) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.tokens.Invalidate()
		return &token.AuthError{Status: resp.StatusCode, Err: fmt.Errorf("%s %s rejected", op, table)}
	default:
		return fmt.Errorf("%s %s failed with status %d", op, table, resp.StatusCode)
	}
}

func shapeQuery(table string, columns []string, offset int64) string {
	q := url.Values{}
	q.Set("table", table)
	q.Set("columns", strings.Join(columns, ","))
	q.Set("offset", strconv.FormatInt(offset, 10))
	return q.Encode()
}
