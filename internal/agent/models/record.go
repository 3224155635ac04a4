// Package models defines the records the capture agent stores locally and
// ships to the collection backend, plus the inbound browser events that
// produce them.
package models

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/webtrail/internal/common"
)

// RecordType distinguishes heterogeneous records in the shared store.
type RecordType string

const (
	TypeVisit     RecordType = "visit"
	TypePageData  RecordType = "page_data"
	TypeHighlight RecordType = "highlight"
)

// HighlightKind is the original form of a remembered selection.
type HighlightKind string

const (
	HighlightText  HighlightKind = "text"
	HighlightImage HighlightKind = "image"
)

// VisitRecord aggregates ordinary browsing of one canonical URL.
// There is at most one VisitRecord per URL; merges are additive.
type VisitRecord struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	VisitCount  int        `json:"visit_count"`
	TotalTimeMs int64      `json:"total_time_ms"`
	LastVisit   time.Time  `json:"last_visit"`
	Type        RecordType `json:"type"`
}

// ImageRef is one image captured alongside page content.
type ImageRef struct {
	ImageURL string `json:"image_url"`
	AltText  string `json:"alt_text,omitempty"`
}

// PageDataRecord holds the full extracted content of one page. The content
// fields are opaque to the agent; they are produced by the extractor and
// forwarded to the backend as-is.
type PageDataRecord struct {
	URL         string            `json:"url"`
	Title       string            `json:"title"`
	ContentHTML string            `json:"content_html,omitempty"`
	Text        string            `json:"text,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	Images      []ImageRef        `json:"images,omitempty"`
	AccessedAt  time.Time         `json:"accessed_at"`
	Type        RecordType        `json:"type"`
}

// HighlightRecord is one user "remember" action. Every action yields a new,
// immutable record; highlights are never merged or overwritten.
type HighlightRecord struct {
	Content      string        `json:"content"`
	OriginalType HighlightKind `json:"original_type"`
	URL          string        `json:"url"`
	Timestamp    time.Time     `json:"timestamp"`
	Priority     bool          `json:"priority"`
	Type         RecordType    `json:"type"`
}

// Item is the stored envelope for any record. For page data and highlights it
// carries the sync-queue state: while unsynced, PendingData holds the full
// payload awaiting delivery; once synced only the lightweight preview fields
// and the backend id remain. Visit records live entirely in Visit and are
// never shipped.
type Item struct {
	Key        string     `json:"key"`
	Type       RecordType `json:"type"`
	AccessedAt time.Time  `json:"accessed_at"`

	Synced      bool            `json:"synced"`
	BackendID   int64           `json:"backend_id,omitempty"`
	PendingData json.RawMessage `json:"pending_data,omitempty"`

	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
	Preview   string    `json:"preview,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`

	Visit *VisitRecord `json:"visit,omitempty"`
}

// Pending reports whether the item still awaits delivery to the backend.
func (i *Item) Pending() bool {
	return !i.Synced && len(i.PendingData) > 0
}

const previewLen = 120

// MakePreview shortens s to a display-sized snippet kept after the full
// payload is discarded. Truncation lands on a rune boundary so the preview
// stays valid UTF-8.
func MakePreview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= previewLen {
		return s
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// CanonicalURL normalizes raw into the stable merge key used for visit
// aggregation and page dedup: scheme and host are lowercased, the fragment
// and well-known tracking parameters are stripped, and a trailing slash on a
// bare path is removed. It returns common.ErrorMissingURL for anything that
// is not an absolute http(s) URL.
func CanonicalURL(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", common.ErrorMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", common.ErrorMissingURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", common.ErrorMissingURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if strings.HasPrefix(param, "utm_") || param == "fbclid" || param == "gclid" {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}

	return u.String(), nil
}
