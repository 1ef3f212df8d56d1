package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func TestLogsCmd_Filters(t *testing.T) {
	ts := setupTestServices(t)
	ts.chat.logs = []domain.ChatLogEntry{
		{ID: 2, Timestamp: testTime, UserID: "u1", ModelKey: "Llama", Version: "v2", Question: "second question", Feedback: "positive"},
		{ID: 1, Timestamp: testTime, UserID: "u1", ModelKey: "Llama", Question: "first"},
	}

	out, err := execute(t, "", "logs", "--model", "llama", "--feedback", "none", "--user", "u1", "--skip", "1", "--limit", "5")

	require.NoError(t, err)
	require.Len(t, ts.chat.filters, 1)
	assert.Equal(t, domain.LogFilter{ModelKey: "llama", Feedback: "none", UserID: "u1", Skip: 1, Limit: 5}, ts.chat.filters[0])
	assert.Contains(t, out, "second question")
	assert.Contains(t, out, "positive")
}

func TestLogsCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "", "logs")

	require.NoError(t, err)
	assert.Contains(t, out, "No log entries found.")
}

func TestLogsCmd_CSV(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "", "logs", "--csv", "--model", "Llama")

	require.NoError(t, err)
	assert.Contains(t, out, "id,ts,user_id,question,reply,model,feature,version,feedback")
	require.Len(t, ts.chat.filters, 1)
	assert.Equal(t, domain.DefaultLogLimit, ts.chat.filters[0].Limit)
}

func TestLogsCmd_NegativeSkip(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "", "logs", "--skip", "-1")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFeedbackCmd(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr error
	}{
		{"positive", []string{"feedback", "7", "positive"}, `Recorded "positive" on entry 7`, nil},
		{"clear", []string{"feedback", "7", "none"}, "Cleared feedback on entry 7", nil},
		{"bad id", []string{"feedback", "abc", "positive"}, "", domain.ErrInvalidInput},
		{"zero id", []string{"feedback", "0", "positive"}, "", domain.ErrInvalidInput},
		{"unknown id", []string{"feedback", "404", "positive"}, "", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			out, err := execute(t, "", tt.args...)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
