package agentapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iedon/peerapi/config"
	"github.com/iedon/peerapi/logger"
	"github.com/iedon/peerapi/version"
)

const bearerScheme = "Bearer\x20"

// AgentResponse is the envelope every agent endpoint replies with
type AgentResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client calls the remote per-router agent over HTTP
type Client struct {
	logger     *logger.Logger
	httpClient *http.Client
}

// NewClient creates a new agent client with a bounded request timeout
func NewClient(cfg *config.Fetch, log *logger.Logger) *Client {
	return &Client{
		logger: log.Named("fetch"),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
	}
}

// RequestSync asks the agent at callbackURL to pull and converge its
// session state. The database is already committed when this is called;
// failure is the agent's problem to recover from by polling.
func (c *Client) RequestSync(ctx context.Context, callbackURL, agentSecret, routerUUID string) error {
	resp, err := c.do(ctx, http.MethodGet, callbackURL+"/sync", agentSecret, routerUUID, nil)
	if err != nil {
		return err
	}
	if resp.Code != 0 {
		return fmt.Errorf("agent replied code %d: %s", resp.Code, resp.Message)
	}
	return nil
}

// NodeInfo forwards an opaque data blob to the agent's info endpoint and
// returns the agent's opaque reply
func (c *Client) NodeInfo(ctx context.Context, callbackURL, agentSecret, routerUUID string, asn uint, data json.RawMessage) (json.RawMessage, error) {
	body := map[string]any{
		"asn":  asn,
		"data": data,
	}
	resp, err := c.do(ctx, http.MethodPost, callbackURL+"/info", agentSecret, routerUUID, body)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("agent replied code %d: %s", resp.Code, resp.Message)
	}
	return resp.Data, nil
}

func (c *Client) do(ctx context.Context, method, url, agentSecret, routerUUID string, body any) (*AgentResponse, error) {
	token, err := GenerateToken(agentSecret, routerUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", bearerScheme+token)
	req.Header.Set("User-Agent", version.SERVER_SIGNATURE)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent call failed, status code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response AgentResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse agent response: %w", err)
	}

	return &response, nil
}
