package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestExtractModelKey(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid model versions URI", uri: "ragdesk://models/m1/versions", expected: "m1"},
		{name: "invalid prefix", uri: "file://models/m1/versions", expected: ""},
		{name: "missing versions suffix", uri: "ragdesk://models/m1", expected: ""},
		{name: "nested path", uri: "ragdesk://models/a/b/versions", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractModelKey(tt.uri))
		})
	}
}

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleVersionsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil training service returns empty list", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}})

		result, err := server.handleVersionsResource(ctx, makeReadResourceRequest("ragdesk://versions"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns versions", func(t *testing.T) {
		training := &mockTrainingService{versions: []domain.CorpusVersion{
			{ModelKey: "m1", VersionID: "v1", Active: true, Description: "first corpus"},
		}}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Training: training})

		result, err := server.handleVersionsResource(ctx, makeReadResourceRequest("ragdesk://versions"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var got []VersionOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "first corpus", got[0].Description)
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		training := &mockTrainingService{err: errors.New("disk error")}
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Training: training})

		_, err := server.handleVersionsResource(ctx, makeReadResourceRequest("ragdesk://versions"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing versions")
	})
}

func TestServer_handleModelVersionsResource(t *testing.T) {
	ctx := context.Background()
	training := &mockTrainingService{versions: []domain.CorpusVersion{
		{ModelKey: "m1", VersionID: "v1"},
		{ModelKey: "m2", VersionID: "v1"},
	}}
	server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{}, Training: training})

	result, err := server.handleModelVersionsResource(ctx, makeReadResourceRequest("ragdesk://models/m2/versions"))
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"model": "m2"`)
	assert.NotContains(t, result.Contents[0].Text, `"model": "m1"`)

	_, err = server.handleModelVersionsResource(ctx, makeReadResourceRequest("ragdesk://models/m2"))
	require.Error(t, err)
}
