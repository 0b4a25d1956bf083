// Package vox provides the REST client for the voice agent backend.
//
// The backend exposes four operations: call credential issuance, prompt
// history retrieval, transcript retrieval, and feedback submission. The
// realtime audio transport is a separate concern (see pkg/realtime).
package vox

import (
	"log/slog"
	"strings"
)

// Client is the main entry point for talking to the agent backend.
type Client struct {
	Tokens        *TokenService
	History       *HistoryService
	Conversations *ConversationService

	// Internal
	baseURL    string
	httpClient httpDoer
	logger     *slog.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}

	c.Tokens = &TokenService{client: c}
	c.History = &HistoryService{client: c}
	c.Conversations = &ConversationService{client: c}
	return c
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + path
}
