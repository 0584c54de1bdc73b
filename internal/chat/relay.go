// Package chat forwards visitor questions to the external assistant endpoint
// and turns its variable response formats into a single reply string.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/folio/folio/backend/go-services/internal/document"
	"github.com/folio/folio/backend/go-services/pkg/logger"
	"github.com/folio/folio/backend/go-services/pkg/metrics"
)

const (
	defaultBaseURL = "https://api.coze.com"
	chatPath       = "/v3/chat"
	maxBody        = 4 << 20
)

// StatusError reports a non-2xx answer from the endpoint.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.Status, e.Body)
}

// DocumentSource supplies the site document used to ground answers.
type DocumentSource interface {
	Load(ctx context.Context) *document.Document
}

// Options configures a Relay.
type Options struct {
	APIKey       string
	BaseURL      string
	BotID        string
	Model        string
	OwnerProfile string
	HistoryTurns int
	Timeout      time.Duration
	Client       *http.Client
}

// Request is one visitor message with the preceding turns.
type Request struct {
	Message   string
	History   []Message
	SessionID string
}

type Relay struct {
	opts   Options
	client *http.Client
	docs   DocumentSource
	log    *logger.Component
}

func NewRelay(opts Options, docs DocumentSource) *Relay {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Relay{opts: opts, client: client, docs: docs, log: logger.Named("chat")}
}

// Enabled reports whether an API key is configured. Without one the relay
// answers with a local demo reply.
func (r *Relay) Enabled() bool { return r.opts.APIKey != "" }

// HistoryTurns is the number of prior messages forwarded.
func (r *Relay) HistoryTurns() int { return r.opts.HistoryTurns }

type wireMessage struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type wireRequest struct {
	BotID              string        `json:"bot_id"`
	UserID             string        `json:"user_id"`
	Model              string        `json:"model,omitempty"`
	Stream             bool          `json:"stream"`
	System             string        `json:"system,omitempty"`
	AdditionalMessages []wireMessage `json:"additional_messages"`
}

// Relay sends the message and returns the normalized reply. Non-2xx answers
// are returned as *StatusError and are not retried.
func (r *Relay) Relay(ctx context.Context, req Request) (string, error) {
	history := Trim(req.History, r.opts.HistoryTurns)
	if !r.Enabled() {
		metrics.ChatRequests.WithLabelValues("mock").Inc()
		return mockReply(req.Message), nil
	}

	var doc *document.Document
	if r.docs != nil {
		doc = r.docs.Load(ctx)
	}
	body := wireRequest{
		BotID:  r.opts.BotID,
		UserID: req.SessionID,
		Model:  r.opts.Model,
		Stream: true,
		System: SystemContext(r.opts.OwnerProfile, doc),
	}
	for _, m := range history {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		body.AdditionalMessages = append(body.AdditionalMessages, wireMessage{Role: role, Content: m.Content, ContentType: "text"})
	}
	body.AdditionalMessages = append(body.AdditionalMessages, wireMessage{Role: "user", Content: req.Message, ContentType: "text"})

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.BaseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	hreq.Header.Set("Authorization", "Bearer "+r.opts.APIKey)
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(hreq)
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		metrics.ChatRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ChatRequests.WithLabelValues("upstream_error").Inc()
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	reply := Normalize(raw)
	if reply == Placeholder {
		r.log.Warnf("no reply text in %d byte response", len(raw))
	}
	metrics.ChatRequests.WithLabelValues("ok").Inc()
	return reply, nil
}

func mockReply(message string) string {
	return fmt.Sprintf("[demo] The assistant is not connected yet. You asked: %q", strings.TrimSpace(message))
}
