package repository

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/CodeYourFuture/trainee-tracker/internal/models"
)

const githubPageSize = 100

// GithubRepository fetches curriculum issues, trainee pull requests and team
// rosters from the course org. Module names double as repository names.
type GithubRepository struct {
	client *github.Client
	org    string
	logger *zap.Logger
}

// NewGithubRepository constructs a GitHub repository. An empty token yields
// an unauthenticated client, which is enough for public org data but rate
// limited hard.
func NewGithubRepository(ctx context.Context, token, org string, logger *zap.Logger) *GithubRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &GithubRepository{
		client: github.NewClient(httpClient),
		org:    org,
		logger: logger,
	}
}

// ListModuleIssues returns every issue of the module's repository, open and
// closed. GitHub reports pull requests through the issues API too; those are
// flagged so the caller can skip them.
func (r *GithubRepository) ListModuleIssues(ctx context.Context, module string) ([]models.Issue, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}

	var issues []models.Issue
	for {
		page, resp, err := r.client.Issues.ListByRepo(ctx, r.org, module, opts)
		if err != nil {
			return nil, fmt.Errorf("list issues for %s/%s: %w", r.org, module, err)
		}
		for _, issue := range page {
			issues = append(issues, models.Issue{
				Number:        issue.GetNumber(),
				Title:         issue.GetTitle(),
				URL:           issue.GetHTMLURL(),
				Labels:        labelNames(issue.Labels),
				IsPullRequest: issue.IsPullRequest(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return issues, nil
}

// ListModulePullRequests returns the module repository's pull requests in a
// stable order: last update time, then number. Closed pull requests that
// never reached Complete are dropped, they are abandoned work. Pull requests
// without an author are skipped.
func (r *GithubRepository) ListModulePullRequests(ctx context.Context, module string) ([]models.Pr, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}

	var prs []models.Pr
	for {
		page, resp, err := r.client.PullRequests.List(ctx, r.org, module, opts)
		if err != nil {
			return nil, fmt.Errorf("list pull requests for %s/%s: %w", r.org, module, err)
		}
		for _, pr := range page {
			if pr.GetUser() == nil || pr.GetUser().GetLogin() == "" {
				r.logger.Warn("skipping pull request without author",
					zap.String("repo", module),
					zap.Int("number", pr.GetNumber()))
				continue
			}
			state := models.PrStateFromLabels(labelNames(pr.Labels))
			closed := pr.GetState() == "closed"
			if closed && state != models.PrStateComplete {
				continue
			}
			prs = append(prs, models.Pr{
				RepoName:  module,
				Number:    pr.GetNumber(),
				URL:       pr.GetHTMLURL(),
				Title:     pr.GetTitle(),
				Author:    pr.GetUser().GetLogin(),
				Body:      pr.GetBody(),
				State:     state,
				CreatedAt: pr.GetCreatedAt().Time,
				UpdatedAt: pr.GetUpdatedAt().Time,
				Closed:    closed,
				Labels:    labelNames(pr.Labels),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	sort.SliceStable(prs, func(i, j int) bool {
		if !prs[i].UpdatedAt.Equal(prs[j].UpdatedAt) {
			return prs[i].UpdatedAt.Before(prs[j].UpdatedAt)
		}
		return prs[i].Number < prs[j].Number
	})
	return prs, nil
}

// ListTeamMembers returns the GitHub logins of the named org team.
func (r *GithubRepository) ListTeamMembers(ctx context.Context, team string) ([]string, error) {
	opts := &github.TeamListTeamMembersOptions{
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}

	var members []string
	for {
		page, resp, err := r.client.Teams.ListTeamMembersBySlug(ctx, r.org, team, opts)
		if err != nil {
			return nil, fmt.Errorf("list members of team %s/%s: %w", r.org, team, err)
		}
		for _, member := range page {
			if member.GetLogin() == "" {
				continue
			}
			members = append(members, member.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return members, nil
}

func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, label := range labels {
		names = append(names, label.GetName())
	}
	return names
}
