package models

// AuthorIdentity identifies one historical author as supplied by the
// knowledge-base collaborator. Names holds the label plus any alternate
// name variants, in order of preference. Construct once, never mutate.
type AuthorIdentity struct {
	Names     []string `json:"names"`
	VIAF      string   `json:"viaf,omitempty"`
	DeathDate string   `json:"death_date,omitempty"`
}

// Primary returns the preferred name variant.
func (a AuthorIdentity) Primary() string {
	if len(a.Names) == 0 {
		return ""
	}
	return a.Names[0]
}

// WorkCandidate is one work as returned by the search API. Produced only
// by the source adapter and never mutated afterwards.
type WorkCandidate struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Downloadable  bool     `json:"downloadable"`
	URL           string   `json:"url,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Language      string   `json:"language,omitempty"`
	Description   string   `json:"description,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	ThumbnailURL  string   `json:"thumbnail_url,omitempty"`
}

// PrimaryAuthor returns the first attributed author name, if any.
func (w WorkCandidate) PrimaryAuthor() string {
	if len(w.Authors) == 0 {
		return ""
	}
	return w.Authors[0]
}

// FetchPage is one raw result page. ReportedTotal is a hint only: the API
// reports arbitrary placeholder totals while pages are still full, so it
// must never be used as a loop-termination predicate on its own. OK is
// false when the remote call failed outright; an OK page with zero items
// is a valid response.
type FetchPage struct {
	Items         []WorkCandidate
	ReportedTotal int
	OK            bool
}

// Termination reasons carried on an incomplete Resolution.
const (
	ReasonTransientFailure = "transient fetch failure"
	ReasonRequestCeiling   = "request ceiling reached"
	ReasonCanceled         = "canceled"
)

// Resolution is the outcome of resolving one author against the search
// API. Works is deduplicated by volume ID and ordered by accumulation.
// Complete is false when resolution terminated early; Reason says why.
type Resolution struct {
	Author   AuthorIdentity  `json:"author"`
	Works    []WorkCandidate `json:"works"`
	Complete bool            `json:"complete"`
	Reason   string          `json:"reason,omitempty"`
	Requests int             `json:"requests"`
}

// NewWork is a reconciled work not yet present in the catalog. Key is the
// normalized title+author key used for dedup.
type NewWork struct {
	WorkCandidate
	Key string `json:"key"`
}
