package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for ragdesk resources.
	uriScheme = "ragdesk://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "versions",
		Name:        "versions",
		Description: "Every trained corpus version, newest first",
		MIMEType:    "application/json",
	}, s.handleVersionsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "models/{model}/versions",
		Name:        "model-versions",
		Description: "Corpus versions of one model, newest first",
		MIMEType:    "application/json",
	}, s.handleModelVersionsResource)
}

// handleVersionsResource returns every corpus version.
func (s *Server) handleVersionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	return s.versionsResource(ctx, req.Params.URI, "")
}

// handleModelVersionsResource returns the versions of the model named in the URI.
func (s *Server) handleModelVersionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	model := extractModelKey(req.Params.URI)
	if model == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return s.versionsResource(ctx, req.Params.URI, model)
}

func (s *Server) versionsResource(ctx context.Context, uri, model string) (*mcp.ReadResourceResult, error) {
	versions, err := s.versions(ctx, model)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	infos := make([]VersionOutput, len(versions))
	for i, v := range versions {
		infos[i] = toVersionOutput(v)
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling versions: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractModelKey extracts the model key from a URI like ragdesk://models/{model}/versions.
func extractModelKey(uri string) string {
	const prefix = uriScheme + "models/"
	const suffix = "/versions"

	rest, ok := strings.CutPrefix(uri, prefix)
	if !ok {
		return ""
	}
	model, ok := strings.CutSuffix(rest, suffix)
	if !ok || strings.Contains(model, "/") {
		return ""
	}
	return model
}
