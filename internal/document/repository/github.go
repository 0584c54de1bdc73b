package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/folio/folio/backend/go-services/internal/document"
)

// GitHubTarget writes the document through the repository contents API:
// it reads the current blob sha, then issues an update conditioned on it.
type GitHubTarget struct {
	apiURL  string
	token   string
	owner   string
	repo    string
	branch  string
	path    string
	message string
	client  *http.Client
}

// GitHubOptions configures a GitHubTarget.
type GitHubOptions struct {
	APIURL  string
	Token   string
	Owner   string
	Repo    string
	Branch  string
	Path    string
	Message string
	Client  *http.Client
}

func NewGitHubTarget(o GitHubOptions) *GitHubTarget {
	client := o.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	apiURL := strings.TrimRight(o.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}
	msg := o.Message
	if msg == "" {
		msg = "Update site content"
	}
	return &GitHubTarget{
		apiURL:  apiURL,
		token:   o.Token,
		owner:   o.Owner,
		repo:    o.Repo,
		branch:  o.Branch,
		path:    strings.TrimPrefix(o.Path, "/"),
		message: msg,
		client:  client,
	}
}

func (g *GitHubTarget) Name() string { return "github" }

type contentsResponse struct {
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

const rawMediaType = "application/vnd.github.raw+json"

type contentsUpdate struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

func (g *GitHubTarget) Fetch(ctx context.Context) (*document.Document, error) {
	cur, err := g.current(ctx)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, ErrNotFound
	}
	// files over 1 MB come back without inline content
	if cur.Encoding == "none" || (cur.Content == "" && cur.Size > 0) {
		raw, err := g.raw(ctx)
		if err != nil {
			return nil, err
		}
		return document.Decode(raw)
	}
	if cur.Encoding != "" && cur.Encoding != "base64" {
		return nil, fmt.Errorf("contents api: unsupported encoding %q", cur.Encoding)
	}
	// the API wraps base64 payloads at 60 columns
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cur.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("contents api: decode content: %w", err)
	}
	return document.Decode(raw)
}

func (g *GitHubTarget) Persist(ctx context.Context, doc *document.Document) error {
	cur, err := g.current(ctx)
	if err != nil {
		return err
	}
	b, err := document.Encode(doc)
	if err != nil {
		return err
	}
	body := contentsUpdate{
		Message: g.message,
		Content: base64.StdEncoding.EncodeToString(b),
		Branch:  g.branch,
	}
	if cur != nil {
		body.SHA = cur.SHA
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("contents api: encode request: %w", err)
	}
	req, err := g.newRequest(ctx, http.MethodPut, g.contentsURL(false), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("contents api: put: %w", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s", ErrConflict, strings.TrimSpace(string(msg)))
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("contents api: put status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

// current returns the stored blob, or nil when the path does not exist yet.
func (g *GitHubTarget) current(ctx context.Context) (*contentsResponse, error) {
	if g.token == "" {
		return nil, ErrDisabled
	}
	req, err := g.newRequest(ctx, http.MethodGet, g.contentsURL(true), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contents api: get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("contents api: get status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("contents api: decode response: %w", err)
	}
	return &out, nil
}

// raw reads the file body through the raw media type, which has no size cap
// below 100 MB.
func (g *GitHubTarget) raw(ctx context.Context) ([]byte, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.contentsURL(true), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", rawMediaType)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contents api: get raw: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("contents api: get raw status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("contents api: read raw: %w", err)
	}
	return b, nil
}

func (g *GitHubTarget) contentsURL(withRef bool) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.apiURL, url.PathEscape(g.owner), url.PathEscape(g.repo), g.path)
	if withRef && g.branch != "" {
		u += "?ref=" + url.QueryEscape(g.branch)
	}
	return u
}

func (g *GitHubTarget) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("contents api: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}
