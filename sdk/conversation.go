package vox

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vango-go/vox-console/pkg/core"
)

// ConversationService retrieves transcripts and submits call feedback.
type ConversationService struct {
	client *Client
}

// TranscriptMessage is one role-tagged message of a finished call.
type TranscriptMessage struct {
	ID          string            `json:"id"`
	Role        string            `json:"role"`
	Content     TranscriptContent `json:"content"`
	Interrupted bool              `json:"interrupted"`
}

// TranscriptContent decodes both content encodings the backend produces: a
// plain string, or a list of typed blocks whose text parts are joined.
type TranscriptContent struct {
	Text string
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *TranscriptContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &blocks); err == nil {
		parts := make([]string, 0, len(blocks))
		for _, b := range blocks {
			if b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		c.Text = strings.Join(parts, " ")
		return nil
	}
	// Unknown structure: keep the raw JSON so nothing is silently dropped.
	c.Text = string(data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c TranscriptContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Text)
}

type transcriptResponse struct {
	Conversation []TranscriptMessage `json:"conversation"`
}

// FetchTranscript returns the transcript for a finished call. A 2xx response
// with an empty conversation returns an empty slice and nil error: the
// transcript is produced asynchronously and "not ready yet" is not a
// failure. Non-2xx and network failures are fetch errors.
func (s *ConversationService) FetchTranscript(ctx context.Context, documentID string) ([]TranscriptMessage, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, core.NewInvalidRequestError("document id must not be empty")
	}
	var resp transcriptResponse
	if err := s.client.doJSON(ctx, http.MethodGet, "/api/conversation/"+documentID, nil, &resp); err != nil {
		return nil, core.NewFetchError("transcript fetch failed", err)
	}
	return resp.Conversation, nil
}

// Quality is a binary call quality rating.
type Quality string

const (
	QualityGood Quality = "Good"
	QualityBad  Quality = "Bad"
)

type feedbackRequest struct {
	DocumentID          string `json:"document_id"`
	ConversationQuality string `json:"conversation_quality"`
	FeedbackComment     string `json:"feedback_comment"`
}

// SubmitFeedback posts a quality rating for the given transcript document.
// The service does not enforce idempotency; a repeat call is simply sent to
// the server as-is. Failures are submit errors and retryable by the user.
func (s *ConversationService) SubmitFeedback(ctx context.Context, documentID string, quality Quality) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return core.NewInvalidRequestError("document id must not be empty")
	}
	switch quality {
	case QualityGood, QualityBad:
	default:
		return core.NewInvalidRequestError("quality must be Good or Bad")
	}
	req := feedbackRequest{
		DocumentID:          documentID,
		ConversationQuality: string(quality),
		FeedbackComment:     "",
	}
	if err := s.client.doJSON(ctx, http.MethodPost, "/api/conversation/"+documentID+"/feedback", req, nil); err != nil {
		return core.NewSubmitError("feedback submission failed", err)
	}
	return nil
}
