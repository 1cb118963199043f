package models

import (
	"strings"
	"time"
)

// PrState is the review state of a pull request, derived from its labels.
type PrState string

const (
	PrStateNeedsReview PrState = "needs_review"
	PrStateReviewed    PrState = "reviewed"
	PrStateComplete    PrState = "complete"
	PrStateUnknown     PrState = "unknown"
)

// PrStateFromLabels derives the review state from GitHub label names.
// Needs Review takes precedence over Complete, which takes precedence over
// Reviewed.
func PrStateFromLabels(labels []string) PrState {
	set := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		set[label] = struct{}{}
	}
	if _, ok := set["Needs Review"]; ok {
		return PrStateNeedsReview
	}
	if _, ok := set["Complete"]; ok {
		return PrStateComplete
	}
	if _, ok := set["Reviewed"]; ok {
		return PrStateReviewed
	}
	return PrStateUnknown
}

// Pr is a pull request snapshot fetched from GitHub. It is read-only input
// to the matcher.
type Pr struct {
	RepoName  string    `json:"repo_name"`
	Number    int       `json:"number"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	State     PrState   `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Closed    bool      `json:"closed"`
	Labels    []string  `json:"labels"`
}

// Issue is a GitHub issue snapshot. Issues and pull requests share one
// numbering and label space; IsPullRequest marks the latter.
type Issue struct {
	Number        int      `json:"number"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Labels        []string `json:"labels"`
	IsPullRequest bool     `json:"is_pull_request"`
}

// NormalizeLogin folds a GitHub login for comparison. GitHub logins are
// case-insensitive.
func NormalizeLogin(login string) string {
	return strings.ToLower(login)
}
