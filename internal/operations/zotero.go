package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
)

const (
	defaultAttachmentLimit = 25
	maxAttachmentLimit     = 100
)

// AttachmentQuery narrows a Zotero library search for splittable PDFs.
type AttachmentQuery struct {
	Query      string   // Quick search text (title, creator, year)
	Tags       []string // Filter by tags
	Collection string   // Restrict to one collection key
	Limit      int      // Max parent items to inspect (default 25, max 100)
}

// PDFAttachment is a Zotero attachment whose key can be used as a zotero_id
// source for a split job.
type PDFAttachment struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ParentKey   string `json:"parent_key"`
	ParentTitle string `json:"parent_title"`
	Creators    string `json:"creators,omitempty"`
}

// FindPDFAttachments searches a Zotero user library and returns the PDF
// attachments of matching items, in the order Zotero returns the parents.
// Items whose children cannot be listed are skipped.
func FindPDFAttachments(ctx context.Context, apiKey, libraryID string, query AttachmentQuery, log logger.Logger) ([]PDFAttachment, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Zotero API key is required")
	}
	if libraryID == "" {
		return nil, fmt.Errorf("Zotero library ID is required")
	}

	client := zotero.NewClient(libraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(apiKey))

	params := &zotero.QueryParams{
		Q:        query.Query,
		QMode:    "titleCreatorYear",
		Tag:      query.Tags,
		ItemType: []string{"-attachment"},
		Limit:    clampLimit(query.Limit),
		Sort:     "dateModified",
	}

	var items []zotero.Item
	var err error
	if query.Collection != "" {
		items, err = client.CollectionItems(ctx, query.Collection, params)
	} else {
		items, err = client.Items(ctx, params)
	}
	if err != nil {
		log.Error("Zotero search failed: %v", err)
		return nil, fmt.Errorf("failed to search Zotero library: %w", err)
	}

	attachments := make([]PDFAttachment, 0, len(items))
	for _, item := range items {
		children, err := client.Children(ctx, item.Key, nil)
		if err != nil {
			log.Warn("Failed to list attachments of %s: %v", item.Key, err)
			continue
		}
		for _, child := range children {
			if !isPDFAttachment(child.Data.ItemType, child.Data.ContentType, child.Data.Filename, child.Data.LinkMode) {
				continue
			}
			attachments = append(attachments, PDFAttachment{
				Key:         child.Key,
				Filename:    child.Data.Filename,
				ParentKey:   item.Key,
				ParentTitle: item.Data.Title,
				Creators:    creatorNames(item),
			})
		}
	}

	log.Info("Found %d PDF attachments across %d Zotero items", len(attachments), len(items))
	return attachments, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultAttachmentLimit
	case limit > maxAttachmentLimit:
		return maxAttachmentLimit
	default:
		return limit
	}
}

func isPDFAttachment(itemType, contentType, filename, linkMode string) bool {
	if itemType != "attachment" {
		return false
	}
	// Linked URLs have no stored file to download.
	if linkMode == "linked_url" {
		return false
	}
	return contentType == "application/pdf" || strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func creatorNames(item zotero.Item) string {
	names := make([]string, 0, len(item.Data.Creators))
	for _, c := range item.Data.Creators {
		switch {
		case c.Name != "":
			names = append(names, c.Name)
		case c.FirstName != "" || c.LastName != "":
			names = append(names, strings.TrimSpace(c.FirstName+" "+c.LastName))
		}
	}
	return strings.Join(names, "; ")
}
