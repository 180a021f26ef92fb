package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"liqrun/internal/ledger"
	"liqrun/internal/session"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type startBody struct {
	Player  string `json:"player,omitempty"`
	ChainID uint64 `json:"chainId,omitempty"`
}

type finishBody struct {
	Token   string `json:"token"`
	Player  string `json:"player,omitempty"`
	ChainID uint64 `json:"chainId,omitempty"`
}

func (c *Client) Start(ctx context.Context, player string, chainID uint64) (session.StartResult, error) {
	var out session.StartResult
	err := c.jsonRequest(ctx, http.MethodPost, "/api/game/start", startBody{Player: player, ChainID: chainID}, &out)
	return out, err
}

func (c *Client) Heartbeat(ctx context.Context, token string) (session.HeartbeatResult, error) {
	var out session.HeartbeatResult
	err := c.jsonRequest(ctx, http.MethodPost, "/api/game/heartbeat", map[string]string{"token": token}, &out)
	return out, err
}

func (c *Client) Finish(ctx context.Context, token, player string, chainID uint64) (session.FinishResult, error) {
	var out session.FinishResult
	err := c.jsonRequest(ctx, http.MethodPost, "/api/game/finish", finishBody{Token: token, Player: player, ChainID: chainID}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, chainID uint64, player string) (ledger.Profile, error) {
	var out ledger.Profile
	path := "/api/ledger/" + strconv.FormatUint(chainID, 10) + "/players/" + url.PathEscape(player)
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
