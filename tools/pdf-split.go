package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/operations"
	"github.com/Epistemic-Technology/pdf-splitter/internal/storage"
	"github.com/Epistemic-Technology/pdf-splitter/models"
)

type PDFSplitQuery struct {
	ZoteroID string `json:"zotero_id,omitempty"`
	URL      string `json:"url,omitempty"`
	RawData  []byte `json:"raw_data,omitempty"`
	Ranges   string `json:"ranges"` // Comma-separated, e.g. "1-5,8,10-12"
}

type PDFSplitResponse struct {
	Message       string             `json:"message"`
	TotalPages    int                `json:"total_pages"`
	FileCount     int                `json:"file_count"`
	Files         []models.SplitFile `json:"files"`
	ResourcePaths []string           `json:"resource_paths"`
}

func PDFSplitTool() *mcp.Tool {
	inputschema, err := jsonschema.For[PDFSplitQuery](nil)
	if err != nil {
		panic(err)
	}
	return &mcp.Tool{
		Name:        "pdf-split",
		Description: "Split a PDF into one file per page range. Provide exactly one of url (a direct link or a Google Drive share link), raw_data or zotero_id, plus ranges such as \"1-5,8,10-12\". Ranges are 1-indexed and inclusive; out-of-bounds ends are clamped and malformed entries are skipped. Each output is available as a split:// resource until it expires.",
		InputSchema: inputschema,
	}
}

func PDFSplitToolHandler(ctx context.Context, req *mcp.CallToolRequest, query PDFSplitQuery, splitter *operations.Splitter, log logger.Logger) (*mcp.CallToolResult, *PDFSplitResponse, error) {
	log.Info("pdf-split tool called")

	source := models.SourceInfo{
		ZoteroID: query.ZoteroID,
		URL:      query.URL,
		RawData:  query.RawData,
	}
	manifest, err := splitter.RunSplit(ctx, source, query.Ranges)
	if err != nil {
		log.Error("pdf-split tool failed: %v", err)
		return nil, nil, err
	}

	message := operations.Describe(manifest)
	responseData := &PDFSplitResponse{
		Message:       message,
		TotalPages:    manifest.TotalPages,
		FileCount:     manifest.FileCount,
		Files:         manifest.Files,
		ResourcePaths: storage.CalculateResourcePaths(manifest),
	}

	result := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
	}
	for i, f := range manifest.Files {
		result.Content = append(result.Content, &mcp.ResourceLink{
			URI:      responseData.ResourcePaths[i],
			Name:     f.Filename,
			MIMEType: "application/pdf",
		})
	}

	return result, responseData, nil
}
