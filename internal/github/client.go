// Package github fetches issue, pull-request and commit snapshots from the
// upstream repository. It is the data-source boundary of the scoring engine:
// one page per pass, mapped down to the fields the engine cares about.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/contribscore/internal/config"
	"github.com/contribscore/internal/domain"
)

// Client talks to the GitHub REST API for a single repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	token      string
	logger     *slog.Logger
}

// NewClient creates a snapshot client. Token is optional; without it requests
// run against the unauthenticated rate limit.
func NewClient(cfg *config.GitHubConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		token:      cfg.Token,
		logger:     logger,
	}
}

type issuePayload struct {
	Number      int            `json:"number"`
	Title       string         `json:"title"`
	State       string         `json:"state"`
	Body        *string        `json:"body"`
	HTMLURL     string         `json:"html_url"`
	Labels      []domain.Label `json:"labels"`
	PullRequest *struct{}      `json:"pull_request,omitempty"`
}

type pullPayload struct {
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	State   string  `json:"state"`
	Body    *string `json:"body"`
	HTMLURL string  `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	MergedAt *time.Time `json:"merged_at"`
}

type commitPayload struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// get performs one API request and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := fmt.Sprintf("%s/repos/%s/%s/%s", c.baseURL, c.owner, c.repo, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: fetching %s: status %d", domain.ErrUpstreamUnavailable, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", domain.ErrUpstreamUnavailable, path, err)
	}
	return nil
}

// ListIssues returns the issue snapshot. Entries that are pull requests stay
// in the result flagged IsPullRequest; the scoring index filters them out.
func (c *Client) ListIssues(ctx context.Context) ([]domain.Issue, error) {
	var payload []issuePayload
	if err := c.get(ctx, "issues?state=all", &payload); err != nil {
		return nil, err
	}

	issues := make([]domain.Issue, len(payload))
	for i, raw := range payload {
		body := ""
		if raw.Body != nil {
			body = *raw.Body
		}
		issues[i] = domain.Issue{
			Number:        raw.Number,
			Title:         raw.Title,
			State:         raw.State,
			Body:          body,
			URL:           raw.HTMLURL,
			Labels:        raw.Labels,
			IsPullRequest: raw.PullRequest != nil,
		}
	}
	return issues, nil
}

// ListPulls returns the pull-request snapshot across all states.
func (c *Client) ListPulls(ctx context.Context) ([]domain.PullRequest, error) {
	var payload []pullPayload
	if err := c.get(ctx, "pulls?state=all", &payload); err != nil {
		return nil, err
	}

	pulls := make([]domain.PullRequest, len(payload))
	for i, raw := range payload {
		body := ""
		if raw.Body != nil {
			body = *raw.Body
		}
		pulls[i] = domain.PullRequest{
			Number:   raw.Number,
			User:     raw.User.Login,
			Title:    raw.Title,
			State:    raw.State,
			Body:     body,
			URL:      raw.HTMLURL,
			MergedAt: raw.MergedAt,
		}
	}
	return pulls, nil
}

// ListCommits returns the commit snapshot.
func (c *Client) ListCommits(ctx context.Context) ([]domain.Commit, error) {
	var payload []commitPayload
	if err := c.get(ctx, "commits", &payload); err != nil {
		return nil, err
	}

	commits := make([]domain.Commit, len(payload))
	for i, raw := range payload {
		commits[i] = domain.Commit{
			SHA:     raw.SHA,
			Message: raw.Commit.Message,
			Author:  raw.Commit.Author.Name,
			Date:    raw.Commit.Author.Date,
			URL:     raw.HTMLURL,
		}
	}
	return commits, nil
}
