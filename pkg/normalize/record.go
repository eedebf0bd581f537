// Package normalize maps raw registry records into catalog items.
//
// Each registry shape is its own Go type implementing the sealed Record
// interface; Normalizer.Normalize switches over the variants with a pure
// mapping function per shape.
package normalize

import (
	"time"

	"github.com/agentstation/hubmap/pkg/catalog"
)

// Record is a raw item from one of the registries.
type Record interface {
	// Category returns the catalog category the record belongs to.
	Category() catalog.Category
	// RawID returns the best available identity for diagnostics.
	RawID() string

	sealed()
}

// CodeRecord is a repository from the code-hosting listing.
type CodeRecord struct {
	FullName    string    `json:"full_name"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PushedAt    time.Time `json:"pushed_at"`
	Fork        bool      `json:"fork"`
	Archived    bool      `json:"archived"`
	Topics      []string  `json:"topics"`
	Stars       Count     `json:"stargazers_count"`
	Forks       Count     `json:"forks_count"`
	HTMLURL     string    `json:"html_url"`
	Homepage    *string   `json:"homepage"`
	Language    *string   `json:"language"`
	License     *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

// CardData is the metadata block parsed from a hub item's card.
type CardData struct {
	PrettyName       string     `json:"pretty_name"`
	Title            string     `json:"title"`
	ModelName        string     `json:"model_name"`
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	Tags             StringList `json:"tags"`
	Datasets         StringList `json:"datasets"`
	Models           StringList `json:"models"`
	LibraryName      string     `json:"library_name"`
	SDK              string     `json:"sdk"`
	License          StringList `json:"license"`
	TaskCategories   StringList `json:"task_categories"`
	CreatedAt        Timestamp  `json:"created_at"`
}

// HubRecord holds the fields shared by every hub item kind.
type HubRecord struct {
	ID           string    `json:"id"`
	Author       string    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	Likes        Count     `json:"likes"`
	Downloads    Count     `json:"downloads"`
	Private      bool      `json:"private"`
	Tags         []string  `json:"tags"`
	Description  string    `json:"description"`
	CardData     *CardData `json:"cardData"`
}

func (h HubRecord) card() CardData {
	if h.CardData == nil {
		return CardData{}
	}
	return *h.CardData
}

// DatasetRecord is a dataset from the hub listing.
type DatasetRecord struct {
	HubRecord
}

// ModelRecord is a model from the hub detail endpoint.
type ModelRecord struct {
	HubRecord
	ModelID     string `json:"modelId"`
	LibraryName string `json:"library_name"`
	PipelineTag string `json:"pipeline_tag"`
}

// SpaceRecord is a demo space from the hub listing.
type SpaceRecord struct {
	HubRecord
	SDK      string     `json:"sdk"`
	Models   StringList `json:"models"`
	Datasets StringList `json:"datasets"`
}

// Category implements Record.
func (CodeRecord) Category() catalog.Category { return catalog.CategoryCode }

// Category implements Record.
func (DatasetRecord) Category() catalog.Category { return catalog.CategoryDataset }

// Category implements Record.
func (ModelRecord) Category() catalog.Category { return catalog.CategoryModel }

// Category implements Record.
func (SpaceRecord) Category() catalog.Category { return catalog.CategorySpace }

// RawID implements Record.
func (r CodeRecord) RawID() string {
	if r.FullName != "" {
		return r.FullName
	}
	return r.Name
}

// RawID implements Record.
func (r DatasetRecord) RawID() string { return r.ID }

// RawID implements Record.
func (r ModelRecord) RawID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.ModelID
}

// RawID implements Record.
func (r SpaceRecord) RawID() string { return r.ID }

func (CodeRecord) sealed()    {}
func (DatasetRecord) sealed() {}
func (ModelRecord) sealed()   {}
func (SpaceRecord) sealed()   {}
