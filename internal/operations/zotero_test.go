package operations

import (
	"context"
	"os"
	"testing"

	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
)

// getZoteroCredentials retrieves Zotero credentials from environment.
// Skips the test if credentials are not available.
func getZoteroCredentials(t *testing.T) (apiKey, libraryID string) {
	apiKey = os.Getenv("ZOTERO_API_KEY")
	libraryID = os.Getenv("ZOTERO_LIBRARY_ID")

	if apiKey == "" || libraryID == "" {
		t.Skip("ZOTERO_API_KEY and ZOTERO_LIBRARY_ID not set, skipping integration test")
	}

	return apiKey, libraryID
}

func TestFindPDFAttachments_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	apiKey, libraryID := getZoteroCredentials(t)
	log := logger.NewNoOpLogger()

	attachments, err := FindPDFAttachments(context.Background(), apiKey, libraryID, AttachmentQuery{Limit: 5}, log)
	if err != nil {
		t.Fatalf("FindPDFAttachments failed: %v", err)
	}

	t.Logf("Found %d PDF attachments", len(attachments))
	for i, att := range attachments {
		if att.Key == "" || att.ParentKey == "" {
			t.Errorf("Attachment %d is missing keys: %+v", i, att)
		}
	}
}

func TestFindPDFAttachments_MissingCredentials(t *testing.T) {
	log := logger.NewNoOpLogger()

	tests := []struct {
		name      string
		apiKey    string
		libraryID string
		wantError string
	}{
		{
			name:      "Missing API key",
			apiKey:    "",
			libraryID: "12345",
			wantError: "Zotero API key is required",
		},
		{
			name:      "Missing library ID",
			apiKey:    "test-key",
			libraryID: "",
			wantError: "Zotero library ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindPDFAttachments(context.Background(), tt.apiKey, tt.libraryID, AttachmentQuery{}, log)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if err.Error() != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, err.Error())
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 25},
		{-3, 25},
		{10, 10},
		{100, 100},
		{500, 100},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsPDFAttachment(t *testing.T) {
	tests := []struct {
		name                                      string
		itemType, contentType, filename, linkMode string
		want                                      bool
	}{
		{"stored pdf", "attachment", "application/pdf", "paper.pdf", "imported_file", true},
		{"pdf by extension", "attachment", "", "Scan.PDF", "imported_url", true},
		{"linked url", "attachment", "application/pdf", "", "linked_url", false},
		{"snapshot", "attachment", "text/html", "page.html", "imported_url", false},
		{"note", "note", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPDFAttachment(tt.itemType, tt.contentType, tt.filename, tt.linkMode); got != tt.want {
				t.Errorf("isPDFAttachment() = %v, want %v", got, tt.want)
			}
		})
	}
}
