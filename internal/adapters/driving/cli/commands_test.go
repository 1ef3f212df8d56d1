package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driving/mcp"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/tui"
)

func TestTUICmd(t *testing.T) {
	assert.Equal(t, "tui <model>", tuiCmd.Use)
	assert.Contains(t, tuiCmd.Long, "Ctrl+F")

	flag := tuiCmd.Flags().Lookup("user")
	require.NotNil(t, flag)
	assert.Equal(t, tui.DefaultUserID, flag.DefValue)
}

func TestTUICmd_RequiresModel(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestTUICmd_RequiresChatService(t *testing.T) {
	SetServices(Services{})

	_, err := execute(t, "", "tui", "Llama")

	assert.ErrorIs(t, err, tui.ErrMissingChatService)
}

func TestMCPCmd(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)
	assert.Contains(t, mcpCmd.Long, "list_versions")

	flag := mcpCmd.Flags().Lookup("http")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestMCPCmd_RequiresRetrievalService(t *testing.T) {
	SetServices(Services{})

	_, err := execute(t, "", "mcp")

	assert.ErrorIs(t, err, mcp.ErrMissingRetrievalService)
}

func TestServeCmd(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
	assert.Contains(t, serveCmd.Long, "/api/admin/train")
	require.NotNil(t, serveCmd.Flags().Lookup("addr"))
}

func TestSetServeConfig(t *testing.T) {
	defer SetServeConfig(nil)

	cfg := &ServeConfig{Addr: ":9999", AdminToken: "t"}
	SetServeConfig(cfg)

	assert.Same(t, cfg, serveConfig)
}
