package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// PageRange is a 1-indexed, inclusive interval of document pages.
type PageRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Label renders the range as "start-end". Single pages render as "p-p".
func (r PageRange) Label() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Pages returns the number of pages the range covers.
func (r PageRange) Pages() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// RangeSpec keeps ranges in the order the caller wrote them.
type RangeSpec []PageRange

type SourceKind int

const (
	SourceNone SourceKind = iota
	SourceInline
	SourceDirectURL
	SourceShareLink
	SourceZotero
)

func (k SourceKind) String() string {
	switch k {
	case SourceInline:
		return "inline"
	case SourceDirectURL:
		return "url"
	case SourceShareLink:
		return "share-link"
	case SourceZotero:
		return "zotero"
	default:
		return "none"
	}
}

// SourceInfo describes where the PDF comes from. Exactly one field is set.
type SourceInfo struct {
	RawData  []byte `json:"raw_data,omitempty"`
	URL      string `json:"url,omitempty"`
	ZoteroID string `json:"zotero_id,omitempty"`
}

// Kind reports which variant is populated. SourceNone is returned when no
// field is set; ambiguous descriptors are reported by Populated.
func (s SourceInfo) Kind() SourceKind {
	switch {
	case s.RawData != nil:
		return SourceInline
	case s.URL != "":
		if IsShareLink(s.URL) {
			return SourceShareLink
		}
		return SourceDirectURL
	case s.ZoteroID != "":
		return SourceZotero
	default:
		return SourceNone
	}
}

// Populated returns how many variants carry data.
func (s SourceInfo) Populated() int {
	n := 0
	if s.RawData != nil {
		n++
	}
	if s.URL != "" {
		n++
	}
	if s.ZoteroID != "" {
		n++
	}
	return n
}

// IsShareLink reports whether the URL points at a Google Drive share page
// rather than at the file bytes.
func IsShareLink(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "drive.google.com" || host == "docs.google.com"
}

// AcquiredDocument is validated PDF bytes plus their page count.
type AcquiredDocument struct {
	Data      []byte
	PageCount int
	Source    SourceKind
}

// SplitOutput is one produced document and the range it was built from.
type SplitOutput struct {
	Range     PageRange
	Data      []byte
	PageCount int
}

// StoredArtifact describes an entry in the ephemeral store.
type StoredArtifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// SplitFile is one manifest entry.
type SplitFile struct {
	Range     string `json:"range"`
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	PageCount int    `json:"page_count"`
}

// SplitManifest is the ordered result of a split job.
type SplitManifest struct {
	TotalPages int         `json:"total_pages"`
	FileCount  int         `json:"file_count"`
	Files      []SplitFile `json:"files"`
}

// DownloadFilename is the friendly name offered to clients for a range label.
func DownloadFilename(label string) string {
	if label == "" {
		return "split_pdf.pdf"
	}
	return "split_" + label + ".pdf"
}
