// Package github looks up public repository metadata through the GitHub
// REST API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/denysvitali/repo-analyzer-go/pkg/config"
	"github.com/denysvitali/repo-analyzer-go/pkg/source"
)

const defaultBaseURL = "https://api.github.com"

// ErrNotFound is matched by API errors with status 404
var ErrNotFound = errors.New("github: not found")

// APIError is a non-200 response from the GitHub API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("github: status %d", e.StatusCode)
	}
	return fmt.Sprintf("github: status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Repository is the subset of GET /repos/{owner}/{repo} that is reported
type Repository struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       struct {
		Login string `json:"login"`
	} `json:"owner"`
	Stars    int    `json:"stargazers_count"`
	Forks    int    `json:"forks_count"`
	Language string `json:"language"`
	License  *struct {
		Name   string `json:"name"`
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	OpenIssuesCount int       `json:"open_issues_count"`
	WatchersCount   int       `json:"watchers_count"`
}

// LicenseName returns the license name or "No License"
func (r *Repository) LicenseName() string {
	if r.License == nil || r.License.Name == "" {
		return "No License"
	}
	return r.License.Name
}

// Client talks to the GitHub REST API. Create one per request; it keeps no
// state beyond its configuration.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient creates a client; an empty token makes unauthenticated requests
func NewClient(cfg config.GitHubConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   cfg.Token,
	}
}

// Repository fetches metadata for ref
func (c *Client) Repository(ctx context.Context, ref source.Ref) (*Repository, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, ref.Owner, ref.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: request %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var repo Repository
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		return nil, fmt.Errorf("github: decode %s: %w", ref, err)
	}
	return &repo, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Message
	}
	return apiErr
}
