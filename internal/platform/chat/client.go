package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Invite is one row of a guild's invite table as reported by the platform.
type Invite struct {
	Code      string
	Uses      int
	InviterID string
}

// Client is the chat platform collaborator consumed by the core. The core
// never talks to the platform gateway directly; it posts announcements and
// reads invite tables, nothing more.
type Client interface {
	// PostAnnouncement posts content to a channel and returns the ID of
	// the created message.
	PostAnnouncement(ctx context.Context, channelID, content string) (string, error)

	// FetchInvites returns the current invite table for a guild.
	FetchInvites(ctx context.Context, guildID string) ([]Invite, error)
}

type restClient struct {
	http    *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

// NewRESTClient builds a rate-limited REST client for the platform API.
func NewRESTClient(baseURL, token string, requestsPerSecond float64) Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &restClient{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		token:   token,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
	}
}

type postMessageRequest struct {
	Content string `json:"content"`
}

type postMessageResponse struct {
	ID string `json:"id"`
}

func (c *restClient) PostAnnouncement(ctx context.Context, channelID, content string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(postMessageRequest{Content: content})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("post announcement: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", unexpectedStatus(resp)
	}

	var out postMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode message response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("platform returned empty message id")
	}
	return out.ID, nil
}

type inviteResponse struct {
	Code    string `json:"code"`
	Uses    int    `json:"uses"`
	Inviter struct {
		ID string `json:"id"`
	} `json:"inviter"`
}

func (c *restClient) FetchInvites(ctx context.Context, guildID string) ([]Invite, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/guilds/%s/invites", c.baseURL, guildID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch invites: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unexpectedStatus(resp)
	}

	var rows []inviteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode invites response: %w", err)
	}

	invites := make([]Invite, 0, len(rows))
	for _, row := range rows {
		invites = append(invites, Invite{
			Code:      row.Code,
			Uses:      row.Uses,
			InviterID: row.Inviter.ID,
		})
	}
	return invites, nil
}

func (c *restClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

func unexpectedStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	return fmt.Errorf("platform returned %d: %s", resp.StatusCode, string(snippet))
}
