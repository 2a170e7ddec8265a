package resources

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/pdf"
	"github.com/Epistemic-Technology/pdf-splitter/internal/storage"
)

// SplitResourceHandler serves stored split files as MCP resources
type SplitResourceHandler struct {
	store storage.Store
}

// NewSplitResourceHandler creates a new split resource handler
func NewSplitResourceHandler(store storage.Store) *SplitResourceHandler {
	return &SplitResourceHandler{store: store}
}

// ReadResource returns the PDF bytes for a split:// URI.
func (h *SplitResourceHandler) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	name, err := storage.NameFromURI(uri)
	if err != nil {
		return nil, err
	}

	rc, _, err := h.store.Open(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", name, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: pdf.MIMEType,
				Blob:     data,
			},
		},
	}, nil
}
