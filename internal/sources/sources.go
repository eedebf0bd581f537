// Package sources defines the registry contracts the fetch orchestrator
// depends on. Concrete clients live in the github and huggingface packages.
package sources

import (
	"context"

	"github.com/agentstation/hubmap/pkg/normalize"
)

// Registry names used in errors, logs and metrics.
const (
	GitHub      = "github"
	HuggingFace = "huggingface"
)

// CodeRegistry lists an organization's public repositories.
type CodeRegistry interface {
	ListRepositories(ctx context.Context, org string, limit int) ([]normalize.CodeRecord, error)
}

// HubRegistry lists datasets, models and spaces authored by an organization.
type HubRegistry interface {
	ListDatasets(ctx context.Context, author string, limit int) ([]normalize.DatasetRecord, error)
	ListSpaces(ctx context.Context, author string, limit int) ([]normalize.SpaceRecord, error)
	// ListModelIDs returns model identifiers only; the listing omits the
	// card metadata, so each model is enriched through Model.
	ListModelIDs(ctx context.Context, author string, limit int) ([]string, error)
	Model(ctx context.Context, id string) (normalize.ModelRecord, error)
}

// RepositoryStats is the informational badge for one repository.
type RepositoryStats struct {
	Repository    string `json:"repository" yaml:"repository"`
	URL           string `json:"url" yaml:"url"`
	Stars         int    `json:"stars" yaml:"stars"`
	Forks         int    `json:"forks" yaml:"forks"`
	LatestRelease string `json:"latest_release,omitempty" yaml:"latest_release,omitempty"`
}

// StatsRegistry reports repository statistics.
type StatsRegistry interface {
	RepositoryStats(ctx context.Context, owner, repo string) (RepositoryStats, error)
}
