// Package git runs the git binary against a vault directory.
//
// Vaults that are git repositories get one commit per batch run, so a
// regeneration can be reviewed or reverted as a unit.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNothingToCommit is returned by Commit when the working tree is clean.
var ErrNothingToCommit = errors.New("nothing to commit")

// Client wraps git command execution in a working directory.
// Callers serialize access through the vault lock.
type Client struct {
	WorkDir string
	Logger  *slog.Logger
}

// NewClient creates a git client for workDir.
func NewClient(workDir string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{WorkDir: workDir, Logger: logger}
}

// IsInstalled reports whether git is on the PATH.
func IsInstalled() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsRepo reports whether WorkDir is the root of a git repository.
func (c *Client) IsRepo() bool {
	_, err := os.Stat(filepath.Join(c.WorkDir, ".git"))
	return err == nil
}

// Run executes a raw git command in the working directory.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	c.Logger.Debug("executing git", "args", args, "dir", c.WorkDir)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.WorkDir

	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w\nOutput: %s", args[0], err, output)
	}
	return strings.TrimSpace(output), nil
}

// Init initializes a repository. Re-running it on an existing repository is safe.
func (c *Client) Init(ctx context.Context) error {
	_, err := c.Run(ctx, "init")
	return err
}

// Add stages files, given relative to WorkDir.
func (c *Client) Add(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		return nil
	}
	_, err := c.Run(ctx, append([]string{"add", "--"}, files...)...)
	return err
}

// Changed returns the paths reported by `git status --porcelain`.
func (c *Client) Changed(ctx context.Context) ([]string, error) {
	out, err := c.Run(ctx, "status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		// Run trims the output, so the status column is not fixed width.
		_, path, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		path = strings.TrimSpace(path)
		if _, to, ok := strings.Cut(path, " -> "); ok {
			path = to
		}
		paths = append(paths, strings.Trim(path, `"`))
	}
	return paths, nil
}

// Commit stages every change and records it with msg.
func (c *Client) Commit(ctx context.Context, msg string) error {
	changed, err := c.Changed(ctx)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		return ErrNothingToCommit
	}
	if _, err := c.Run(ctx, "add", "-A"); err != nil {
		return err
	}
	_, err = c.Run(ctx, "commit", "-m", msg)
	return err
}
