package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Client issues single GraphQL operations against the upstream endpoint.
// No retries: every request maps to exactly one outbound POST.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []ResponseError `json:"errors"`
}

// Do posts one operation with bearer auth and returns the raw data payload.
// GraphQL-level errors come back classified as *Error; transport failures map
// to KindTransport, deadlines to KindTimeout.
func (c *Client) Do(ctx context.Context, token, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUpstream, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &Error{Kind: KindTransport, Message: fmt.Sprintf("upstream returned status %d with undecodable body", resp.StatusCode)}
	}

	if len(env.Errors) > 0 {
		return nil, classify(env.Errors)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Kind: KindUpstream, Message: fmt.Sprintf("upstream returned status %d", resp.StatusCode)}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &Error{Kind: KindUpstream, Message: "upstream returned no data"}
	}
	return env.Data, nil
}

// Ping issues the cheapest possible query. Auth failures still count as
// reachable; only transport-level trouble is reported.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Do(ctx, "", "{ __typename }", nil)
	if err == nil {
		return nil
	}
	switch KindOf(err) {
	case KindTransport, KindTimeout:
		return err
	default:
		return nil
	}
}

func transportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Kind: KindTimeout, Message: fmt.Sprintf("upstream timeout: %v", err)}
	}
	return &Error{Kind: KindTransport, Message: fmt.Sprintf("upstream unreachable: %v", err)}
}
