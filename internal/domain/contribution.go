package domain

import "time"

// Label is a tag attached to an issue, e.g. a difficulty tier like "level3".
type Label struct {
	Name string `json:"name"`
}

// Issue is a snapshot of an upstream issue. The issues API also returns pull
// requests; those carry IsPullRequest=true and never score.
type Issue struct {
	Number        int     `json:"number"`
	Title         string  `json:"title"`
	State         string  `json:"state"`
	Body          string  `json:"body"`
	URL           string  `json:"url"`
	Labels        []Label `json:"labels"`
	IsPullRequest bool    `json:"is_pull_request"`
}

// PullRequest is a snapshot of an upstream pull request.
type PullRequest struct {
	Number   int        `json:"number"`
	User     string     `json:"user"`
	Title    string     `json:"title"`
	State    string     `json:"state"`
	Body     string     `json:"body"`
	URL      string     `json:"url"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
}

// Merged reports whether the pull request has been merged. Only merged pull
// requests are creditable.
func (p *PullRequest) Merged() bool {
	return p.MergedAt != nil
}

// Commit is a snapshot of an upstream commit.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
}
