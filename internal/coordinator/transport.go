package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"voxelhunt/internal/protocol"
)

// Transport sends one action and decodes the success body into out.
// Non-2xx answers come back as *protocol.APIError.
type Transport interface {
	Do(ctx context.Context, req protocol.Request, out any) error
}

// HTTPTransport talks to the game endpoint of a running server. Calls are
// bounded only by the caller's ctx.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPTransport targets baseURL + "/api/game".
func NewHTTPTransport(baseURL string) *HTTPTransport {
	return &HTTPTransport{
		Endpoint: strings.TrimRight(baseURL, "/") + "/api/game",
		Client:   &http.Client{},
	}
}

func (t *HTTPTransport) Do(ctx context.Context, req protocol.Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", req.Action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", req.Action, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &protocol.APIError{Status: resp.StatusCode}
		var e protocol.ErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.Action, err)
	}
	return nil
}
