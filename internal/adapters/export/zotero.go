package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"bibscout/internal/core/domain/models"
)

// zoteroHeaders is the full column set of a Zotero CSV export. Columns we
// never populate stay empty but must be present for the import to line up.
var zoteroHeaders = []string{
	"Key", "Item Type", "Publication Year", "Author", "Title", "Publication Title",
	"ISBN", "ISSN", "DOI", "Url", "Abstract Note", "Date", "Date Added",
	"Date Modified", "Access Date", "Pages", "Num Pages", "Issue", "Volume",
	"Number Of Volumes", "Journal Abbreviation", "Short Title", "Series",
	"Series Number", "Series Text", "Series Title", "Publisher", "Place",
	"Language", "Rights", "Type", "Archive", "Archive Location", "Library Catalog",
	"Call Number", "Extra", "Notes", "File Attachments", "Link Attachments",
	"Manual Tags", "Automatic Tags", "Editor", "Series Editor", "Translator",
	"Contributor", "Attorney Agent", "Book Author", "Cast Member", "Commenter",
	"Composer", "Cosponsor", "Counsel", "Interviewer", "Producer", "Recipient",
	"Reviewed Author", "Scriptwriter", "Words By", "Guest", "Number", "Edition",
	"Running Time", "Scale", "Medium", "Artwork Size", "Filing Date",
	"Application Number", "Assignee", "Issuing Authority", "Country",
	"Meeting Name", "Conference Name", "Court", "References", "Reporter",
	"Legal Status", "Priority Numbers", "Programming Language", "Version",
	"System", "Code", "Code Number", "Section", "Session", "Committee",
	"History", "Legislative Body",
}

// Writer emits new-work records as Zotero-importable CSV.
type Writer struct {
	archive string
	extra   string
	now     func() time.Time
}

func NewWriter(archive, extra string) *Writer {
	return &Writer{archive: archive, extra: extra, now: time.Now}
}

// Write emits the header row followed by one book record per work.
func (zw *Writer) Write(w io.Writer, works []models.NewWork) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(zoteroHeaders); err != nil {
		return err
	}

	stamp := zw.now().Format("2006-01-02 15:04:05")
	for _, work := range works {
		record := map[string]string{
			"Item Type":        "book",
			"Publication Year": extractYear(work.PublishedDate),
			"Author":           formatAuthors(work.Authors),
			"Title":            work.Title,
			"ISBN":             work.ISBN,
			"Url":              work.URL,
			"Abstract Note":    work.Description,
			"Date":             extractYear(work.PublishedDate),
			"Date Added":       stamp,
			"Date Modified":    stamp,
			"Num Pages":        formatPages(work.PageCount),
			"Publisher":        work.Publisher,
			"Language":         work.Language,
			"Archive":          zw.archive,
			"Extra":            zw.extra,
			"File Attachments": work.ThumbnailURL,
		}

		row := make([]string, len(zoteroHeaders))
		for i, h := range zoteroHeaders {
			row[i] = record[h]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatAuthors joins authors as "Last, First; Last, First".
func formatAuthors(authors []string) string {
	formatted := make([]string, 0, len(authors))
	for _, a := range authors {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		formatted = append(formatted, models.NormalizeAuthorName(a))
	}
	return strings.Join(formatted, "; ")
}

// extractYear pulls the 4-digit year out of dates like "1969", "2004-01"
// or "2004-01-15".
func extractYear(publishedDate string) string {
	year, _, _ := strings.Cut(publishedDate, "-")
	if len(year) == 4 {
		if _, err := strconv.Atoi(year); err == nil {
			return year
		}
	}
	return ""
}

func formatPages(count int) string {
	if count <= 0 {
		return ""
	}
	return strconv.Itoa(count)
}
