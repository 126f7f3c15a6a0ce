package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpine/ragcell/internal/core/domain"
)

func sampleSources() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{Chunk: domain.Chunk{ID: 1, Source: "paper.pdf", Page: 3, Text: "relevant passage"}, Score: 0.91},
		{Chunk: domain.Chunk{ID: 2, Source: "notes.md", Text: "another passage"}, Score: 0.72},
	}
}

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [question]", queryCmd.Use)
}

func TestQueryCmd_StreamsAnswer(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"It ", "works."}

	out, err := executeCmd("query", "does it work?")

	require.NoError(t, err)
	assert.Contains(t, out, "It works.")
	assert.NotContains(t, out, "Sources", "sources hidden without --sources")
}

func TestQueryCmd_SourcesFlag(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"answer"}

	out, err := executeCmd("query", "--sources", "does it work?")

	require.NoError(t, err)
	assert.Contains(t, out, "paper.pdf, p.3")
	assert.Contains(t, out, "notes.md")
	assert.Contains(t, out, "0.91")
}

func TestQueryCmd_RetrieveOnlySkipsGeneration(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"should not appear"}

	out, err := executeCmd("query", "--retrieve-only", "does it work?")

	require.NoError(t, err)
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "paper.pdf, p.3")
}

func TestQueryCmd_JSONOutput(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()

	out, err := executeCmd("query", "--json", "does it work?")

	require.NoError(t, err)
	assert.Contains(t, out, `"score": 0.91`)
	assert.Contains(t, out, `"source": "paper.pdf"`)
}

func TestQueryCmd_FlagsReachService(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.tokens = []string{"ok"}

	_, err := executeCmd("query", "-c", "papers", "-k", "7", "--lambda", "0.8", "question")

	require.NoError(t, err)
	assert.Equal(t, "papers", retrieval.lastColl)
	assert.Equal(t, 7, retrieval.lastOpts.TopK)
	assert.Equal(t, 0.8, retrieval.lastOpts.Lambda)
	assert.Equal(t, 21, retrieval.lastOpts.FetchK)
}

func TestQueryCmd_EmptyCollectionHint(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.tokens = []string{"no context answer"}

	out, err := executeCmd("query", "anything?")

	require.NoError(t, err)
	assert.Contains(t, out, "no indexed chunks")
}

func TestQueryCmd_UnavailableEmbedderIsActionable(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.err = domain.ErrEmbeddingUnavailable

	_, err := executeCmd("query", "question")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is Ollama running?")
}

func TestQueryCmd_REPLReadsUntilExit(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"answered"}

	rootCmd.SetIn(strings.NewReader("first question\nexit\n"))
	out, err := executeCmd("query")

	require.NoError(t, err)
	assert.Contains(t, out, "Interactive mode")
	assert.Contains(t, out, "answered")
}

func TestQueryCmd_OutputSavesPlainText(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"It ", "works."}
	path := filepath.Join(t.TempDir(), "answer.txt")

	out, err := executeCmd("query", "-o", path, "does it work?")

	require.NoError(t, err)
	assert.Contains(t, out, "Saved")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Q: does it work?\n\nA: It works.\n", string(data))
}

func TestQueryCmd_OutputSavesJSON(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"yes"}
	cfg.LLMModel = "llama3.2"
	path := filepath.Join(t.TempDir(), "answer.json")

	_, err := executeCmd("query", "--output", path, "does it work?")

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var saved map[string]string
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "does it work?", saved["question"])
	assert.Equal(t, "yes", saved["answer"])
	assert.Equal(t, "default", saved["collection"])
	assert.Equal(t, "llama3.2", saved["model"])
}

func TestQueryCmd_OutputSavesMarkdownInNewDirectory(t *testing.T) {
	_, retrieval, _, cleanup := setupTestServices()
	defer cleanup()
	retrieval.sources = sampleSources()
	retrieval.tokens = []string{"yes"}
	path := filepath.Join(t.TempDir(), "out", "answer.md")

	_, err := executeCmd("query", "-o", path, "does it work?")

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "## Q\n\ndoes it work?\n\n## A\n\nyes\n", string(data))
}

func TestStreamAnswer_CancelledContextIsNotAFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation can close the channel before the trailing error
	// token is delivered; both shapes must read as a clean stop.
	closed := make(chan domain.StreamToken)
	close(closed)
	assert.NoError(t, streamAnswer(ctx, io.Discard, closed))

	withToken := make(chan domain.StreamToken, 1)
	withToken <- domain.StreamToken{Err: context.Canceled}
	close(withToken)
	assert.NoError(t, streamAnswer(ctx, io.Discard, withToken))
}
