package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Epistemic-Technology/pdf-splitter/internal/config"
	"github.com/Epistemic-Technology/pdf-splitter/internal/logger"
	"github.com/Epistemic-Technology/pdf-splitter/internal/operations"
	"github.com/Epistemic-Technology/pdf-splitter/internal/pdf"
	"github.com/Epistemic-Technology/pdf-splitter/resources"
	"github.com/Epistemic-Technology/pdf-splitter/tools"
)

const Version = "v0.1.0"

func CreateServer(splitter *operations.Splitter, zotero config.ZoteroConfig, log logger.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "pdf-splitter", Version: Version}, nil)

	splitResourceHandler := resources.NewSplitResourceHandler(splitter.Store())

	mcp.AddTool(server, tools.PDFSplitTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PDFSplitQuery) (*mcp.CallToolResult, *tools.PDFSplitResponse, error) {
		return tools.PDFSplitToolHandler(ctx, req, query, splitter, log)
	})

	mcp.AddTool(server, tools.PDFPageCountTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.PDFPageCountQuery) (*mcp.CallToolResult, *tools.PDFPageCountResponse, error) {
		return tools.PDFPageCountToolHandler(ctx, req, query, splitter, log)
	})

	mcp.AddTool(server, tools.ZoteroAttachmentsTool(), func(ctx context.Context, req *mcp.CallToolRequest, query tools.ZoteroAttachmentsQuery) (*mcp.CallToolResult, *tools.ZoteroAttachmentsResponse, error) {
		return tools.ZoteroAttachmentsToolHandler(ctx, req, query, zotero, log)
	})

	// Template for split outputs
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "split://{name}",
		Name:        "split-pdf",
		Description: "A PDF produced by pdf-split. Expires after the configured retention period.",
		MIMEType:    pdf.MIMEType,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return splitResourceHandler.ReadResource(ctx, req.Params.URI)
	})

	return server
}
