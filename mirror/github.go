// ABOUTME: GitHub contents API client used as the remote mirror store
// ABOUTME: Reads, writes, deletes and lists base64 files in one repository branch
package mirror

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

	"golang.org/x/oauth2"

	"github.com/harperreed/advisor-crm/config"
)

// File is a remote file with its content decoded.
type File struct {
	Path    string
	SHA     string
	Content []byte
}

// Entry is one item of a remote directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"`
}

// Remote is a file-backed blob store addressed by slash-separated paths.
type Remote interface {
	// Get returns nil and no error when path does not exist.
	Get(ctx context.Context, path string) (*File, error)
	// Put creates path, or replaces it when sha names the current version.
	Put(ctx context.Context, path string, content []byte, message, sha string) error
	Delete(ctx context.Context, path, message, sha string) error
	// List returns nil and no error when dir does not exist.
	List(ctx context.Context, dir string) ([]Entry, error)
}

// APIError is a non-2xx, non-404 response from GitHub.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api %s %s: %d %s", e.Method, e.Path, e.Status, e.Body)
}

// GitHubStore talks to the contents API of one repository.
type GitHubStore struct {
	http    *http.Client
	baseURL string
	owner   string
	repo    string
	branch  string
}

// NewGitHubStore builds a client authenticated with the configured token.
// It returns ErrDisabled when no token is configured.
func NewGitHubStore(ctx context.Context, cfg config.MirrorConfig) (*GitHubStore, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = "https://api.github.com"
	}
	return &GitHubStore{
		http:    oauth2.NewClient(ctx, ts),
		baseURL: base,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
	}, nil
}

type contentResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

func (g *GitHubStore) contentsURL(path string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", g.baseURL, url.PathEscape(g.owner), url.PathEscape(g.repo), escapePath(path))
	if g.branch != "" {
		u += "?ref=" + url.QueryEscape(g.branch)
	}
	return u
}

func escapePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// do sends the request and returns the body. found is false when a GET
// answers 404; for writes a 404 means the repo is missing or not accessible
// and is returned as an *APIError.
func (g *GitHubStore) do(ctx context.Context, method, path string, body any) (data []byte, found bool, err error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, false, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.contentsURL(path), reader)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("github api %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, false, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return data, true, nil
}

func (g *GitHubStore) Get(ctx context.Context, path string) (*File, error) {
	data, found, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil || !found {
		return nil, err
	}

	var c contentResponse
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if c.Type != "" && c.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", path, c.Type)
	}
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(c.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}
	return &File{Path: path, SHA: c.SHA, Content: content}, nil
}

func (g *GitHubStore) Put(ctx context.Context, path string, content []byte, message, sha string) error {
	_, _, err := g.do(ctx, http.MethodPut, path, writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  g.branch,
		SHA:     sha,
	})
	return err
}

func (g *GitHubStore) Delete(ctx context.Context, path, message, sha string) error {
	_, _, err := g.do(ctx, http.MethodDelete, path, writeRequest{
		Message: message,
		Branch:  g.branch,
		SHA:     sha,
	})
	return err
}

func (g *GitHubStore) List(ctx context.Context, dir string) ([]Entry, error) {
	data, found, err := g.do(ctx, http.MethodGet, dir, nil)
	if err != nil || !found {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode listing of %s: %w", dir, err)
	}
	return entries, nil
}
