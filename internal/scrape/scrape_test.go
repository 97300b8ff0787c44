package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHTML = `<!DOCTYPE html>
<html>
<head><title>Reading Go Well</title></head>
<body>
<nav>skip me</nav>
<article id="post" class="entry content">
<h1>Reading Go Well</h1>
<p>Go rewards small interfaces.</p>
<h2>Errors</h2>
<p>Return them, don't panic.</p>
</article>
</body>
</html>`

func newTestPage(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(testHTML))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestPage_Body(t *testing.T) {
	res, err := Page(context.Background(), newTestPage(t), "")
	require.NoError(t, err)

	assert.Equal(t, "Reading Go Well", res.Title)
	assert.Contains(t, res.Markdown, "Go rewards small interfaces.")
}

func TestPage_IDSelector(t *testing.T) {
	res, err := Page(context.Background(), newTestPage(t), "#post")
	require.NoError(t, err)

	assert.Contains(t, res.Markdown, "Go rewards small interfaces.")
	assert.NotContains(t, res.Markdown, "skip me")
}

func TestPage_ClassSelector(t *testing.T) {
	res, err := Page(context.Background(), newTestPage(t), ".entry")
	require.NoError(t, err)
	assert.Contains(t, res.Markdown, "Errors")
}

func TestPage_TagSelector(t *testing.T) {
	res, err := Page(context.Background(), newTestPage(t), "article")
	require.NoError(t, err)
	assert.NotContains(t, res.Markdown, "skip me")
}

func TestPage_SelectorMiss(t *testing.T) {
	_, err := Page(context.Background(), newTestPage(t), "#missing")
	require.Error(t, err)
}

func TestPage_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Page(context.Background(), srv.URL, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestBlocks(t *testing.T) {
	res := &Result{Markdown: "# Title\n\nFirst paragraph.\n\n## Section\n\nSecond paragraph."}
	blocks := res.Blocks()

	require.Len(t, blocks, 4)
	assert.Equal(t, "heading", blocks[0].Type)
	assert.Equal(t, 1, blocks[0].Props["level"])
	assert.Equal(t, "Title", blocks[0].Content)
	assert.Equal(t, "paragraph", blocks[1].Type)
	assert.Equal(t, "heading", blocks[2].Type)
	assert.Equal(t, 2, blocks[2].Props["level"])
}

func TestBlocks_SkipsEmptyChunks(t *testing.T) {
	res := &Result{Markdown: "\n\nOnly one.\n\n\n\n"}
	blocks := res.Blocks()
	require.Len(t, blocks, 1)
	assert.Equal(t, "Only one.", blocks[0].Content)
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line      string
		wantLevel int
		wantText  string
		wantOK    bool
	}{
		{"# Top", 1, "Top", true},
		{"### Deep", 3, "Deep", true},
		{"####### Too deep", 0, "", false},
		{"#NoSpace", 0, "", false},
		{"plain text", 0, "", false},
		{"#", 0, "", false},
	}
	for _, tt := range tests {
		level, text, ok := parseHeading(tt.line)
		assert.Equal(t, tt.wantOK, ok, tt.line)
		if tt.wantOK {
			assert.Equal(t, tt.wantLevel, level, tt.line)
			assert.Equal(t, tt.wantText, text, tt.line)
		}
	}
}
