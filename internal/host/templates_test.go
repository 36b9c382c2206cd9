package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTemplate(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRenderTemplate(t *testing.T) {
	root := t.TempDir()
	h := New(root)
	writeTemplate(t, root, "ext/com.example.demo/hello.html", "Hello, {{.Name}}!")

	out, err := h.RenderTemplate(context.Background(), "ext/com.example.demo/hello.html",
		map[string]string{"Name": "world"})
	require.NoError(t, err)
	require.Equal(t, "Hello, world!", out)
}

func TestRenderTemplate_Missing(t *testing.T) {
	h := New(t.TempDir())

	_, err := h.RenderTemplate(context.Background(), "ext/nope/missing.html", nil)
	require.Error(t, err)
}

func TestRenderTemplate_SourceCachedUntilFlush(t *testing.T) {
	root := t.TempDir()
	h := New(root)
	ctx := context.Background()
	writeTemplate(t, root, "ext/demo/page.html", "v1")

	out, err := h.RenderTemplate(ctx, "ext/demo/page.html", nil)
	require.NoError(t, err)
	require.Equal(t, "v1", out)

	// Replacing the file on disk is invisible until the cache flushes,
	// which the lifecycle manager does on every init/uninit.
	writeTemplate(t, root, "ext/demo/page.html", "v2")

	out, err = h.RenderTemplate(ctx, "ext/demo/page.html", nil)
	require.NoError(t, err)
	require.Equal(t, "v1", out)

	require.NoError(t, h.Flush(ctx))

	out, err = h.RenderTemplate(ctx, "ext/demo/page.html", nil)
	require.NoError(t, err)
	require.Equal(t, "v2", out)
}

func TestRenderTemplate_NameCannotEscapeRoot(t *testing.T) {
	root := t.TempDir()
	h := New(root)

	outside := filepath.Join(filepath.Dir(root), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	t.Cleanup(func() { _ = os.Remove(outside) })

	_, err := h.RenderTemplate(context.Background(), "../secret.txt", nil)
	require.Error(t, err)
}
