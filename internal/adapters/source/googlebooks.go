package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"bibscout/internal/adapters/util"
	"bibscout/internal/core/domain/models"
)

// GoogleBooksAdapter fetches result pages from the Google Books volumes
// API. It is stateless across invocations; every FetchPage call is one
// logical network request.
type GoogleBooksAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.SugaredLogger
}

func NewGoogleBooksAdapter(baseURL, apiKey string, timeout time.Duration, log *zap.SugaredLogger) *GoogleBooksAdapter {
	return &GoogleBooksAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Transport: &util.RetryTransport{
				MaxRetries: 2,
				Base:       &util.LoggingTransport{Log: log},
			},
			Timeout: timeout,
		},
		log: log,
	}
}

// volumesResponse mirrors the slice of the volumes API response we consume.
type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Subtitle            string   `json:"subtitle"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		Language            string   `json:"language"`
		Description         string   `json:"description"`
		PageCount           int      `json:"pageCount"`
		InfoLink            string   `json:"infoLink"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
	AccessInfo struct {
		PublicDomain bool `json:"publicDomain"`
		PDF          struct {
			IsAvailable  bool   `json:"isAvailable"`
			DownloadLink string `json:"downloadLink"`
		} `json:"pdf"`
		EPUB struct {
			IsAvailable  bool   `json:"isAvailable"`
			DownloadLink string `json:"downloadLink"`
		} `json:"epub"`
	} `json:"accessInfo"`
}

// FetchPage requests one page of free-ebook volumes for the author. Name
// variants are OR-joined into a single inauthor query; results are
// deduplicated by volume ID before being handed upward.
func (a *GoogleBooksAdapter) FetchPage(ctx context.Context, author models.AuthorIdentity, offset, pageSize int) (models.FetchPage, error) {
	q := buildQuery(author.Names)
	if q == "" {
		return models.FetchPage{}, fmt.Errorf("author has no usable name variants")
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("filter", "free-ebooks")
	params.Set("startIndex", strconv.Itoa(offset))
	params.Set("maxResults", strconv.Itoa(pageSize))
	if a.apiKey != "" {
		params.Set("key", a.apiKey)
	}

	reqURL := a.baseURL + "/volumes?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.FetchPage{}, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.FetchPage{}, ctx.Err()
		}
		a.log.Debugw("volumes request failed", "offset", offset, "pageSize", pageSize, "err", err)
		return models.FetchPage{}, nil
	}
	defer resp.Body.Close()

	if models.IsHardStatus(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.FetchPage{}, &models.HardAPIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if resp.StatusCode != http.StatusOK {
		a.log.Debugw("volumes request returned error status",
			"offset", offset, "pageSize", pageSize, "status", resp.StatusCode)
		return models.FetchPage{}, nil
	}

	var vr volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		a.log.Debugw("failed to decode volumes response", "offset", offset, "err", err)
		return models.FetchPage{}, nil
	}

	page := models.FetchPage{ReportedTotal: vr.TotalItems, OK: true}
	seen := make(map[string]struct{}, len(vr.Items))
	for _, item := range vr.Items {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		page.Items = append(page.Items, toCandidate(item))
	}
	return page, nil
}

// buildQuery joins name variants disjunctively: inauthor:"A" OR inauthor:"B".
func buildQuery(names []string) string {
	terms := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		terms = append(terms, fmt.Sprintf("inauthor:%q", n))
	}
	return strings.Join(terms, " OR ")
}

func toCandidate(item volumeItem) models.WorkCandidate {
	vi := item.VolumeInfo
	ai := item.AccessInfo

	title := vi.Title
	if vi.Subtitle != "" {
		title = vi.Title + ": " + vi.Subtitle
	}

	// Prefer the direct PDF download, fall back to the info page.
	link := vi.InfoLink
	if ai.PDF.IsAvailable && ai.PDF.DownloadLink != "" {
		link = ai.PDF.DownloadLink
	}

	// Prefer ISBN_13, fall back to ISBN_10.
	var isbn13, isbn10 string
	for _, id := range vi.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			isbn13 = id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	isbn := isbn13
	if isbn == "" {
		isbn = isbn10
	}

	return models.WorkCandidate{
		ID:            item.ID,
		Title:         title,
		Authors:       vi.Authors,
		Downloadable:  ai.PublicDomain || (ai.PDF.IsAvailable && ai.PDF.DownloadLink != "") || (ai.EPUB.IsAvailable && ai.EPUB.DownloadLink != ""),
		URL:           link,
		Publisher:     vi.Publisher,
		PublishedDate: vi.PublishedDate,
		Language:      vi.Language,
		Description:   vi.Description,
		ISBN:          isbn,
		PageCount:     vi.PageCount,
		ThumbnailURL:  vi.ImageLinks.Thumbnail,
	}
}
