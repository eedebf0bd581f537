package normalize

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
)

// Extra keys carried on normalized items.
const (
	ExtraLanguage    = "language"
	ExtraFork        = "fork"
	ExtraForks       = "forks"
	ExtraArchived    = "archived"
	ExtraHomepage    = "homepage"
	ExtraLicense     = "license"
	ExtraLibrary     = "library"
	ExtraPipelineTag = "pipeline_tag"
	ExtraSDK         = "sdk"
	ExtraDatasets    = "datasets"
	ExtraModels      = "models"
	ExtraDownloads   = "downloads"
	ExtraTasks       = "tasks"
	ExtraModalities  = "modalities"
)

// Normalizer converts raw records into catalog items.
type Normalizer struct {
	// Window is the freshness window used for Item.New.
	Window time.Duration
	// Now returns the reference time; time.Now when nil.
	Now func() time.Time
	// HubWebURL is the base of canonical hub links.
	HubWebURL string
}

// New returns a Normalizer with the default window and hub URL.
func New() *Normalizer {
	return &Normalizer{
		Window:    time.Duration(constants.DefaultFreshnessDays) * 24 * time.Hour,
		HubWebURL: constants.HubWebURL,
	}
}

// Normalize maps one record into a catalog item. A record without its
// identity field yields a *errors.MalformedRecordError.
func (n *Normalizer) Normalize(rec Record) (catalog.Item, error) {
	var (
		item catalog.Item
		err  error
	)
	switch r := rec.(type) {
	case CodeRecord:
		item, err = n.code(r)
	case *CodeRecord:
		item, err = n.code(*r)
	case DatasetRecord:
		item, err = n.dataset(r)
	case *DatasetRecord:
		item, err = n.dataset(*r)
	case ModelRecord:
		item, err = n.model(r)
	case *ModelRecord:
		item, err = n.model(*r)
	case SpaceRecord:
		item, err = n.space(r)
	case *SpaceRecord:
		item, err = n.space(*r)
	case nil:
		return catalog.Item{}, errors.NewMalformedRecordError("unknown", "", "nil record")
	default:
		return catalog.Item{}, errors.NewMalformedRecordError("unknown", "", fmt.Sprintf("unsupported record type %T", rec))
	}
	if err != nil {
		return catalog.Item{}, err
	}

	item.Tags = catalog.DedupeTags(item.Tags)
	item.New = item.IsNew(n.now(), n.window())
	return item, nil
}

// NormalizeAll maps records in order. Malformed records are skipped and
// returned alongside the items so callers can report them.
func (n *Normalizer) NormalizeAll(records []Record) ([]catalog.Item, []error) {
	items := make([]catalog.Item, 0, len(records))
	var skipped []error
	for _, rec := range records {
		item, err := n.Normalize(rec)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		items = append(items, item)
	}
	return items, skipped
}

func (n *Normalizer) code(r CodeRecord) (catalog.Item, error) {
	id := strings.TrimSpace(r.FullName)
	if id == "" {
		return catalog.Item{}, errors.NewMalformedRecordError(string(catalog.CategoryCode), r.Name, "missing full_name")
	}

	extra := map[string]any{
		ExtraFork:     r.Fork,
		ExtraForks:    r.Forks.Int(),
		ExtraArchived: r.Archived,
	}
	if r.Language != nil && *r.Language != "" {
		extra[ExtraLanguage] = *r.Language
	}
	if r.Homepage != nil && *r.Homepage != "" {
		extra[ExtraHomepage] = *r.Homepage
	}
	if r.License != nil && r.License.SPDXID != "" {
		extra[ExtraLicense] = r.License.SPDXID
	}

	link := r.HTMLURL
	if link == "" {
		link = "https://github.com/" + id
	}

	return catalog.Item{
		ID:           id,
		Category:     catalog.CategoryCode,
		DisplayName:  firstNonEmpty(r.Name, slug(id)),
		Description:  firstNonEmpty(deref(r.Description), constants.PlaceholderDescription),
		Tags:         r.Topics,
		CreatedAt:    r.CreatedAt,
		LastModified: lastModified(r.UpdatedAt, r.PushedAt),
		Popularity:   r.Stars.Int(),
		URL:          link,
		Extra:        extra,
	}, nil
}

func (n *Normalizer) dataset(r DatasetRecord) (catalog.Item, error) {
	item, err := n.hub(catalog.CategoryDataset, r.HubRecord, "")
	if err != nil {
		return item, err
	}
	card := r.card()
	tasks := append(prefixedTags(r.Tags, "task_categories:"), card.TaskCategories...)
	if tasks = catalog.DedupeTags(tasks); len(tasks) > 0 {
		item.Extra[ExtraTasks] = tasks
	}
	if modalities := catalog.DedupeTags(prefixedTags(r.Tags, "modality:")); len(modalities) > 0 {
		item.Extra[ExtraModalities] = modalities
	}
	return item, nil
}

// prefixedTags returns the values of hub tags of the form prefix+value.
func prefixedTags(tags []string, prefix string) []string {
	var out []string
	for _, tag := range tags {
		if len(tag) > len(prefix) && strings.EqualFold(tag[:len(prefix)], prefix) {
			out = append(out, tag[len(prefix):])
		}
	}
	return out
}

func (n *Normalizer) model(r ModelRecord) (catalog.Item, error) {
	if r.ID == "" {
		r.ID = r.ModelID
	}
	card := r.card()
	item, err := n.hub(catalog.CategoryModel, r.HubRecord, card.ModelName)
	if err != nil {
		return item, err
	}

	if library := firstNonEmpty(r.LibraryName, card.LibraryName); library != "" {
		item.Extra[ExtraLibrary] = library
	}
	if r.PipelineTag != "" {
		item.Extra[ExtraPipelineTag] = r.PipelineTag
	}
	if datasets := linked(r.Tags, "dataset:", card.Datasets); len(datasets) > 0 {
		item.Extra[ExtraDatasets] = datasets
	}
	return item, nil
}

func (n *Normalizer) space(r SpaceRecord) (catalog.Item, error) {
	item, err := n.hub(catalog.CategorySpace, r.HubRecord, "")
	if err != nil {
		return item, err
	}
	card := r.card()

	if sdk := firstNonEmpty(r.SDK, card.SDK); sdk != "" {
		item.Extra[ExtraSDK] = sdk
	}
	if models := linked(r.Tags, "model:", r.Models, card.Models); len(models) > 0 {
		item.Extra[ExtraModels] = models
	}
	if datasets := linked(r.Tags, "dataset:", r.Datasets, card.Datasets); len(datasets) > 0 {
		item.Extra[ExtraDatasets] = datasets
	}
	item.URL = n.hubURL("spaces/" + item.ID)
	return item, nil
}

// hub maps the fields shared by every hub kind. modelName is the extra
// display-name fallback only models carry.
func (n *Normalizer) hub(category catalog.Category, r HubRecord, modelName string) (catalog.Item, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return catalog.Item{}, errors.NewMalformedRecordError(string(category), "", "missing id")
	}
	card := r.card()

	tags := r.Tags
	if len(tags) == 0 {
		tags = card.Tags
	}

	extra := map[string]any{
		ExtraDownloads: r.Downloads.Int(),
	}
	if len(card.License) > 0 {
		extra[ExtraLicense] = card.License[0]
	}

	created := r.CreatedAt
	if created.IsZero() {
		created = card.CreatedAt.Time()
	}

	path := id
	if category == catalog.CategoryDataset {
		path = "datasets/" + id
	}

	return catalog.Item{
		ID:           id,
		Category:     category,
		DisplayName:  firstNonEmpty(card.PrettyName, card.Title, modelName, slug(id)),
		Description:  firstNonEmpty(card.ShortDescription, card.Description, r.Description, constants.PlaceholderDescription),
		Tags:         tags,
		CreatedAt:    created,
		LastModified: lastModified(r.LastModified, created),
		Popularity:   r.Likes.Int(),
		URL:          n.hubURL(path),
		Extra:        extra,
	}, nil
}

func (n *Normalizer) hubURL(path string) string {
	base := n.HubWebURL
	if base == "" {
		base = constants.HubWebURL
	}
	u, err := url.JoinPath(base, path)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + path
	}
	return u
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n *Normalizer) window() time.Duration {
	if n.Window > 0 {
		return n.Window
	}
	return time.Duration(constants.DefaultFreshnessDays) * 24 * time.Hour
}

// linked merges explicit references with prefixed tags such as
// "dataset:imageomics/TreeOfLife-10M", deduplicated case-insensitively.
func linked(tags []string, prefix string, explicit ...StringList) []string {
	var refs []string
	for _, list := range explicit {
		refs = append(refs, list...)
	}
	for _, t := range tags {
		if ref, ok := strings.CutPrefix(t, prefix); ok {
			refs = append(refs, ref)
		}
	}
	return catalog.DedupeTags(refs)
}

// slug returns the part of id after the last "/", or id itself.
func slug(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 && i < len(id)-1 {
		return id[i+1:]
	}
	if id == "" {
		return "unnamed"
	}
	return id
}

func lastModified(primary, fallback time.Time) time.Time {
	if primary.IsZero() {
		return fallback
	}
	return primary
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
