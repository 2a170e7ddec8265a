package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-splitter/internal/config"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/operations"
)

type ZoteroAttachmentsQuery struct {
	Query      string   `json:"query,omitempty"`      // Quick search text (searches title, creator, year)
	Tags       []string `json:"tags,omitempty"`       // Filter by tags
	Collection string   `json:"collection,omitempty"` // Filter by collection key
	Limit      int      `json:"limit,omitempty"`      // Max items to inspect (default 25)
}

type ZoteroAttachmentsResponse struct {
	Attachments []operations.PDFAttachment `json:"attachments"`
	Count       int                        `json:"count"`
}

func ZoteroAttachmentsTool() *mcp.Tool {
	inputschema, err := jsonschema.For[ZoteroAttachmentsQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "zotero-attachments",
		Description: "Search a Zotero library for items with PDF attachments. Pass an attachment key as zotero_id to pdf-split or pdf-page-count.",
		InputSchema: inputschema,
	}
}

func ZoteroAttachmentsToolHandler(ctx context.Context, req *mcp.CallToolRequest, query ZoteroAttachmentsQuery, creds config.ZoteroConfig, log logger.Logger) (*mcp.CallToolResult, *ZoteroAttachmentsResponse, error) {
	log.Info("zotero-attachments tool called")

	if creds.APIKey == "" {
		return nil, nil, fmt.Errorf("ZOTERO_API_KEY environment variable not set")
	}
	if creds.LibraryID == "" {
		return nil, nil, fmt.Errorf("ZOTERO_LIBRARY_ID environment variable not set")
	}

	attachments, err := operations.FindPDFAttachments(ctx, creds.APIKey, creds.LibraryID, operations.AttachmentQuery{
		Query:      query.Query,
		Tags:       query.Tags,
		Collection: query.Collection,
		Limit:      query.Limit,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	return nil, &ZoteroAttachmentsResponse{
		Attachments: attachments,
		Count:       len(attachments),
	}, nil
}
