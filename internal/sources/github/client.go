// Package github lists an organization's repositories and reports
// repository statistics through the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/agentstation/hubmap/internal/sources"
	"github.com/agentstation/hubmap/internal/transport"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/normalize"
)

// Client talks to the GitHub REST API.
type Client struct {
	baseURL string
	perPage int
	http    *transport.Client
}

var (
	_ sources.CodeRegistry  = (*Client)(nil)
	_ sources.StatsRegistry = (*Client)(nil)
)

// NewClient creates a GitHub client rooted at baseURL.
func NewClient(baseURL string, opts ...transport.Option) *Client {
	if baseURL == "" {
		baseURL = constants.GitHubAPIURL
	}
	return &Client{
		baseURL: baseURL,
		perPage: constants.GitHubPerPage,
		http:    transport.New(sources.GitHub, opts...),
	}
}

// ListRepositories returns the organization's public repositories in API
// order, reading as many pages as needed to cover limit. Entries that do not
// decode are skipped and logged.
func (c *Client) ListRepositories(ctx context.Context, org string, limit int) ([]normalize.CodeRecord, error) {
	if org == "" {
		return nil, errors.NewValidationError("organization", org, "organization is required")
	}
	if limit <= 0 {
		limit = constants.DefaultMaxItems
	}
	pages := (limit + c.perPage - 1) / c.perPage

	var repos []normalize.CodeRecord
	for page := 1; page <= pages; page++ {
		endpoint, err := c.endpoint([]string{"orgs", org, "repos"}, url.Values{
			"type":     {"public"},
			"per_page": {strconv.Itoa(c.perPage)},
			"page":     {strconv.Itoa(page)},
		})
		if err != nil {
			return nil, err
		}

		var raw []json.RawMessage
		if err := c.http.GetJSON(ctx, endpoint, &raw); err != nil {
			return nil, err
		}
		for _, entry := range raw {
			var rec normalize.CodeRecord
			if err := json.Unmarshal(entry, &rec); err != nil {
				logging.Ctx(ctx).Warn().
					Err(errors.NewMalformedRecordError(string(catalog.CategoryCode), "", err.Error())).
					Msg("Skipping undecodable repository")
				continue
			}
			repos = append(repos, rec)
		}
		if len(raw) < c.perPage {
			break
		}
	}
	return repos, nil
}

type repository struct {
	FullName string          `json:"full_name"`
	HTMLURL  string          `json:"html_url"`
	Stars    normalize.Count `json:"stargazers_count"`
	Forks    normalize.Count `json:"forks_count"`
}

type release struct {
	TagName string `json:"tag_name"`
}

// RepositoryStats returns stars, forks and the latest release tag of a
// repository. A repository without releases has an empty LatestRelease.
func (c *Client) RepositoryStats(ctx context.Context, owner, repo string) (sources.RepositoryStats, error) {
	repoURL, err := c.endpoint([]string{"repos", owner, repo}, nil)
	if err != nil {
		return sources.RepositoryStats{}, err
	}
	var r repository
	if err := c.http.GetJSON(ctx, repoURL, &r); err != nil {
		return sources.RepositoryStats{}, err
	}

	stats := sources.RepositoryStats{
		Repository: fmt.Sprintf("%s/%s", owner, repo),
		URL:        r.HTMLURL,
		Stars:      r.Stars.Int(),
		Forks:      r.Forks.Int(),
	}
	if r.FullName != "" {
		stats.Repository = r.FullName
	}

	releaseURL, err := c.endpoint([]string{"repos", owner, repo, "releases", "latest"}, nil)
	if err != nil {
		return stats, err
	}
	var rel release
	switch err := c.http.GetJSON(ctx, releaseURL, &rel); {
	case err == nil:
		stats.LatestRelease = rel.TagName
	case errors.IsNotFound(err):
	default:
		return stats, err
	}
	return stats, nil
}

func (c *Client) endpoint(path []string, query url.Values) (string, error) {
	u, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return "", errors.NewConfigError("github", "invalid API URL "+c.baseURL, err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}
