// Package git checks out remote repositories for scanning.
package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dpolishuk/codeflow/internal/logging"
)

var (
	scpLike  = regexp.MustCompile(`^[\w.-]+@[\w.-]+:[\w./~-]+$`)
	safeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

type GitService struct {
	basePath string
	logger   *slog.Logger
}

func NewGitService(basePath string, logger *slog.Logger) *GitService {
	return &GitService{basePath: basePath, logger: logging.OrDefault(logger)}
}

// IsRemoteURL reports whether s names a repository to clone rather than a
// local directory.
func IsRemoteURL(s string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "file://"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return scpLike.MatchString(s)
}

// Clone clones a repository under the base path, or fast-forwards an
// existing checkout, and returns the checkout directory.
func (s *GitService) Clone(ctx context.Context, url, branch string) (string, error) {
	if !IsRemoteURL(url) {
		return "", fmt.Errorf("not a repository url: %q", url)
	}
	repoPath := filepath.Join(s.basePath, ExtractRepoName(url))

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err == nil {
		s.logger.Info("repository already cloned, pulling", "url", url, "path", repoPath)
		return repoPath, s.Pull(ctx, repoPath)
	}

	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}

	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, "--", url, repoPath)

	s.logger.Info("cloning repository", "url", url, "branch", branch, "path", repoPath)
	if _, err := s.run(ctx, "", args...); err != nil {
		return "", fmt.Errorf("git clone failed: %w", err)
	}
	return repoPath, nil
}

// Pull fast-forwards an existing checkout.
func (s *GitService) Pull(ctx context.Context, repoPath string) error {
	if _, err := s.run(ctx, repoPath, "pull", "--ff-only"); err != nil {
		return fmt.Errorf("git pull failed: %w", err)
	}
	return nil
}

// GetCurrentCommit returns the current commit hash
func (s *GitService) GetCurrentCommit(ctx context.Context, repoPath string) (string, error) {
	out, err := s.run(ctx, repoPath, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get commit hash: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// run executes git and folds stderr into the error.
func (s *GitService) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	s.logger.Debug("git", "args", args, "dir", dir)
	return stdout.String(), nil
}

// ExtractRepoName derives a directory name from a repository URL.
func ExtractRepoName(url string) string {
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")

	// git@github.com:owner/repo
	if scpLike.MatchString(url) {
		url = url[strings.Index(url, ":")+1:]
	}
	if i := strings.LastIndex(url, "/"); i >= 0 {
		url = url[i+1:]
	}
	name := safeName.ReplaceAllString(url, "-")
	if name == "" || name == "." || name == ".." {
		return "repo"
	}
	return name
}
