// Package huggingface lists datasets, models and spaces authored by an
// organization through the Hugging Face Hub API.
package huggingface

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/agentstation/hubmap/internal/sources"
	"github.com/agentstation/hubmap/internal/transport"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/normalize"
)

// Kind is a hub resource collection.
type Kind string

// Hub resource collections.
const (
	KindModels   Kind = "models"
	KindDatasets Kind = "datasets"
	KindSpaces   Kind = "spaces"
)

// Client talks to the Hugging Face Hub API.
type Client struct {
	baseURL string
	http    *transport.Client
}

var _ sources.HubRegistry = (*Client)(nil)

// NewClient creates a hub client rooted at baseURL.
func NewClient(baseURL string, opts ...transport.Option) *Client {
	if baseURL == "" {
		baseURL = constants.HubAPIURL
	}
	return &Client{
		baseURL: baseURL,
		http:    transport.New(sources.HuggingFace, opts...),
	}
}

// List returns the raw entries of one collection authored by author, with
// full metadata.
func (c *Client) List(ctx context.Context, kind Kind, author string, limit int) ([]json.RawMessage, error) {
	if author == "" {
		return nil, errors.NewValidationError("author", author, "author is required")
	}
	if limit <= 0 {
		limit = constants.DefaultMaxItems
	}

	endpoint, err := c.endpoint(string(kind))
	if err != nil {
		return nil, err
	}
	endpoint += "?" + url.Values{
		"author": {author},
		"full":   {"true"},
		"limit":  {strconv.Itoa(limit)},
	}.Encode()

	var raw []json.RawMessage
	if err := c.http.GetJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ListDatasets implements sources.HubRegistry.
func (c *Client) ListDatasets(ctx context.Context, author string, limit int) ([]normalize.DatasetRecord, error) {
	raw, err := c.List(ctx, KindDatasets, author, limit)
	if err != nil {
		return nil, err
	}
	return decodeEach[normalize.DatasetRecord](ctx, catalog.CategoryDataset, raw), nil
}

// ListSpaces implements sources.HubRegistry.
func (c *Client) ListSpaces(ctx context.Context, author string, limit int) ([]normalize.SpaceRecord, error) {
	raw, err := c.List(ctx, KindSpaces, author, limit)
	if err != nil {
		return nil, err
	}
	return decodeEach[normalize.SpaceRecord](ctx, catalog.CategorySpace, raw), nil
}

// ListModelIDs implements sources.HubRegistry.
func (c *Client) ListModelIDs(ctx context.Context, author string, limit int) ([]string, error) {
	raw, err := c.List(ctx, KindModels, author, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(raw))
	for _, rec := range decodeEach[normalize.ModelRecord](ctx, catalog.CategoryModel, raw) {
		if id := rec.RawID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Model implements sources.HubRegistry.
func (c *Client) Model(ctx context.Context, id string) (normalize.ModelRecord, error) {
	if strings.TrimSpace(id) == "" {
		return normalize.ModelRecord{}, errors.NewValidationError("id", id, "model id is required")
	}
	endpoint, err := c.endpoint(string(KindModels), strings.Split(id, "/")...)
	if err != nil {
		return normalize.ModelRecord{}, err
	}

	var rec normalize.ModelRecord
	if err := c.http.GetJSON(ctx, endpoint, &rec); err != nil {
		return normalize.ModelRecord{}, err
	}
	return rec, nil
}

func (c *Client) endpoint(first string, rest ...string) (string, error) {
	u, err := url.JoinPath(c.baseURL, append([]string{first}, rest...)...)
	if err != nil {
		return "", errors.NewConfigError("huggingface", "invalid API URL "+c.baseURL, err)
	}
	return u, nil
}

// decodeEach decodes entries one by one so a single bad entry is skipped
// instead of failing the listing.
func decodeEach[T any](ctx context.Context, category catalog.Category, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for _, entry := range raw {
		var rec T
		if err := json.Unmarshal(entry, &rec); err != nil {
			logging.Ctx(ctx).Warn().
				Err(errors.NewMalformedRecordError(string(category), "", err.Error())).
				Msg("Skipping undecodable hub entry")
			continue
		}
		out = append(out, rec)
	}
	return out
}
