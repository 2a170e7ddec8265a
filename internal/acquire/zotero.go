package acquire

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/zotero/zotero"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

// ZoteroFetcher downloads an attachment file from a Zotero user library.
type ZoteroFetcher struct {
	APIKey    string
	LibraryID string
}

func (f *ZoteroFetcher) Fetch(ctx context.Context, source models.SourceInfo) ([]byte, error) {
	if f.APIKey == "" || f.LibraryID == "" {
		return nil, apperr.Acquisition("zotero download failed: ZOTERO_API_KEY and ZOTERO_LIBRARY_ID must be set", nil)
	}

	client := zotero.NewClient(f.LibraryID, zotero.LibraryTypeUser, zotero.WithAPIKey(f.APIKey))
	data, err := client.File(ctx, source.ZoteroID)
	if err != nil {
		return nil, apperr.Acquisition(fmt.Sprintf("zotero download failed: %v", err), err)
	}
	return data, nil
}
