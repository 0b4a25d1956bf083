package vox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-go/vox-console/pkg/core"
)

func TestFetchTranscript_DecodesMessages(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversation": [
			{"id": "m1", "role": "user", "content": "hello there", "interrupted": false},
			{"id": "m2", "role": "assistant", "content": [{"type": "text", "text": "hi!"}, {"type": "text", "text": "how can I help?"}], "interrupted": true}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	messages, err := client.Conversations.FetchTranscript(context.Background(), "doc-9")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v", err)
	}
	if gotPath != "/api/conversation/doc-9" {
		t.Fatalf("path = %q, want %q", gotPath, "/api/conversation/doc-9")
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	if messages[0].Content.Text != "hello there" {
		t.Fatalf("messages[0].Content.Text = %q, want plain string decoded", messages[0].Content.Text)
	}
	if messages[1].Content.Text != "hi! how can I help?" {
		t.Fatalf("messages[1].Content.Text = %q, want joined blocks", messages[1].Content.Text)
	}
	if !messages[1].Interrupted {
		t.Fatalf("messages[1].Interrupted = false, want true")
	}
}

func TestFetchTranscript_EmptyConversationIsNotAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"conversation": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	messages, err := client.Conversations.FetchTranscript(context.Background(), "doc-9")
	if err != nil {
		t.Fatalf("FetchTranscript() error = %v, want nil for empty conversation", err)
	}
	if len(messages) != 0 {
		t.Fatalf("len(messages) = %d, want 0", len(messages))
	}
}

func TestFetchTranscript_NonSuccessIsFetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	_, err := client.Conversations.FetchTranscript(context.Background(), "doc-9")
	if !core.IsType(err, core.ErrFetch) {
		t.Fatalf("error = %v, want fetch_error", err)
	}
}

func TestFetchTranscript_EmptyDocumentIDRejected(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused.invalid")
	_, err := client.Conversations.FetchTranscript(context.Background(), "  ")
	if !core.IsType(err, core.ErrInvalidRequest) {
		t.Fatalf("error = %v, want invalid_request_error", err)
	}
}

func TestSubmitFeedback_PostsExpectedBody(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode feedback body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	if err := client.Conversations.SubmitFeedback(context.Background(), "doc-7", QualityGood); err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}
	if gotPath != "/api/conversation/doc-7/feedback" {
		t.Fatalf("path = %q, want feedback path", gotPath)
	}
	if gotBody["document_id"] != "doc-7" {
		t.Fatalf("document_id = %v, want doc-7", gotBody["document_id"])
	}
	if gotBody["conversation_quality"] != "Good" {
		t.Fatalf("conversation_quality = %v, want Good", gotBody["conversation_quality"])
	}
	if comment, ok := gotBody["feedback_comment"]; !ok || comment != "" {
		t.Fatalf("feedback_comment = %v, want empty string present", comment)
	}
}

func TestSubmitFeedback_FailureIsSubmitError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithHTTPClient(server.Client()))
	err := client.Conversations.SubmitFeedback(context.Background(), "doc-7", QualityBad)
	if !core.IsType(err, core.ErrSubmit) {
		t.Fatalf("error = %v, want submit_error", err)
	}
}

func TestSubmitFeedback_RejectsUnknownQuality(t *testing.T) {
	t.Parallel()

	client := NewClient("http://unused.invalid")
	err := client.Conversations.SubmitFeedback(context.Background(), "doc-7", Quality("Mediocre"))
	if !core.IsType(err, core.ErrInvalidRequest) {
		t.Fatalf("error = %v, want invalid_request_error", err)
	}
}
