// Package api is the request/response client for the call-management and
// session backends.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/jesus-bazan-entel/apoloteams/internal/core"
	"github.com/jesus-bazan-entel/apoloteams/internal/domain"
)

var (
	_ core.CallAPI  = (*Client)(nil)
	_ core.Identity = (*Client)(nil)
)

type Client struct {
	base   string
	httpc  *http.Client
	tokens core.TokenSource
}

func NewClient(base string, tokens core.TokenSource) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		httpc:  &http.Client{Timeout: 5 * time.Second},
		tokens: tokens,
	}
}

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) CreateCall(ctx context.Context, channelID domain.ChannelID, kind domain.CallKind) (*domain.Call, error) {
	req := struct {
		ChannelID domain.ChannelID `json:"channel_id"`
		Kind      domain.CallKind  `json:"kind"`
	}{channelID, kind}
	var call domain.Call
	if err := c.do(ctx, http.MethodPost, "/api/v1/calls", req, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) CreateDirectCall(ctx context.Context, peer domain.UserID, kind domain.CallKind) (*domain.Call, error) {
	req := struct {
		PeerID domain.UserID   `json:"peer_id"`
		Kind   domain.CallKind `json:"kind"`
	}{peer, kind}
	var call domain.Call
	if err := c.do(ctx, http.MethodPost, "/api/v1/calls/direct", req, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) JoinCall(ctx context.Context, id domain.CallID) (*domain.Call, error) {
	var call domain.Call
	if err := c.do(ctx, http.MethodPost, "/api/v1/calls/"+string(id)+"/join", nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

func (c *Client) LeaveCall(ctx context.Context, id domain.CallID) error {
	return c.do(ctx, http.MethodPost, "/api/v1/calls/"+string(id)+"/leave", nil, nil)
}

func (c *Client) EndCall(ctx context.Context, id domain.CallID) error {
	return c.do(ctx, http.MethodPost, "/api/v1/calls/"+string(id)+"/end", nil, nil)
}

func (c *Client) ICEServers(ctx context.Context) ([]webrtc.ICEServer, error) {
	var resp struct {
		ICEServers []webrtc.ICEServer `json:"ice_servers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/calls/ice", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ICEServers, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
