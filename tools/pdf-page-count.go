package tools

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/operations"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

type PDFPageCountQuery struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
	RawData  []byte `json:"raw_data,omitempty"`
}

type PDFPageCountResponse struct {
	PageCount int    `json:"page_count"`
	Source    string `json:"source"`
}

func PDFPageCountTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PDFPageCountQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-page-count",
		Description: "Fetch and validate a PDF and report how many pages it has, without splitting or storing it. Useful for choosing ranges before calling pdf-split.",
		InputSchema: inputschema,
	}
}

func PDFPageCountToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PDFPageCountQuery, splitter *operations.Splitter, log logger.Logger) (*mcp.CallToolResult, *PDFPageCountResponse, error) {
	log.Info("pdf-page-count tool called")

	doc, err := splitter.Inspect(ctx, models.SourceInfo{
		ZoteroID: query.ZoteroID,
		URL:      query.URL,
		RawData:  query.RawData,
	})
	if err != nil {
		log.Error("pdf-page-count tool failed: %v", err)
		return nil, nil, err
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("The document has %d pages.", doc.PageCount)},
		},
	}
	return result, &PDFPageCountResponse{PageCount: doc.PageCount, Source: doc.Source.String()}, nil
}
