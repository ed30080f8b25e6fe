package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/dpolishuk/codeflow/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRepoName(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://github.com/owner/repo", "repo"},
		{"https://github.com/owner/repo.git", "repo"},
		{"https://github.com/owner/repo/", "repo"},
		{"git@github.com:owner/repo.git", "repo"},
		{"http://gitlab.com/group/project", "project"},
		{"file:///tmp/src/demo.git", "demo"},
		{"https://host/..", "repo"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExtractRepoName(tt.url), tt.url)
	}
}

func TestIsRemoteURL(t *testing.T) {
	assert.True(t, IsRemoteURL("https://github.com/owner/repo"))
	assert.True(t, IsRemoteURL("git@github.com:owner/repo.git"))
	assert.True(t, IsRemoteURL("file:///tmp/repo"))
	assert.False(t, IsRemoteURL("/home/me/project"))
	assert.False(t, IsRemoteURL("./project"))
	assert.False(t, IsRemoteURL("-upload-pack=evil"))
}

func TestClone_RejectsLocalPath(t *testing.T) {
	_, err := NewGitService(t.TempDir(), logging.Discard()).Clone(context.Background(), "/etc", "")
	assert.Error(t, err)
}

func TestCloneLocalRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	src := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "app.py"), []byte("def main():\n    pass\n"), 0o644))
	for _, args := range [][]string{
		{"init", "-q", "-b", "main"},
		{"add", "."},
		{"-c", "user.email=t@example.com", "-c", "user.name=t", "commit", "-q", "-m", "init"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = src
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	service := NewGitService(t.TempDir(), logging.Discard())
	ctx := context.Background()

	repoPath, err := service.Clone(ctx, "file://"+src, "main")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(repoPath, "app.py"))

	commit, err := service.GetCurrentCommit(ctx, repoPath)
	require.NoError(t, err)
	assert.Len(t, commit, 40)

	// a second clone of the same url pulls instead
	again, err := service.Clone(ctx, "file://"+src, "main")
	require.NoError(t, err)
	assert.Equal(t, repoPath, again)
}
