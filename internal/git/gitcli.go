package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CLIGraph is a CommitGraph served by the git executable. It reads
// repositories go-git cannot open, such as ones using newer extensions.
//
// Commits are fetched through one long-lived "git cat-file --batch" process;
// CommitObject calls are serialized on it.
type CLIGraph struct {
	ctx  context.Context
	path string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr bytes.Buffer
	broken error
}

// OpenCLI starts a git cat-file process for the repository at path.
// The process ends when ctx is cancelled or the graph is closed.
func OpenCLI(ctx context.Context, path string) (*CLIGraph, error) {
	if out, err := exec.CommandContext(ctx, "git", "-C", path, "rev-parse", "--git-dir").CombinedOutput(); err != nil {
		return nil, fmt.Errorf("open repository %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}

	g := &CLIGraph{ctx: ctx, path: path}
	g.cmd = exec.CommandContext(ctx, "git", "-C", path, "cat-file", "--batch")
	g.cmd.Stderr = &g.stderr

	stdin, err := g.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := g.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := g.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start git cat-file: %w", err)
	}
	g.stdin = stdin
	g.stdout = bufio.NewReader(stdout)
	return g, nil
}

// Path returns the repository path.
func (g *CLIGraph) Path() string {
	return g.path
}

// ResolveTip resolves ref with git rev-parse. An empty ref resolves HEAD.
func (g *CLIGraph) ResolveTip(ref string) (plumbing.Hash, error) {
	rev := strings.TrimSpace(ref)
	if rev == "" {
		rev = "HEAD"
	}

	out, err := exec.CommandContext(g.ctx, "git", "-C", g.path,
		"rev-parse", "--verify", "--quiet", "--end-of-options", rev+"^{commit}").Output()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("git rev-parse %s failed: %w", rev, err)
	}

	hex := strings.TrimSpace(string(out))
	if !plumbing.IsHash(hex) {
		return plumbing.ZeroHash, fmt.Errorf("git rev-parse %s: unexpected output %q", rev, hex)
	}
	return plumbing.NewHash(hex), nil
}

// CommitObject reads and decodes a commit. A missing object yields an error
// wrapping plumbing.ErrObjectNotFound.
func (g *CLIGraph) CommitObject(h plumbing.Hash) (*object.Commit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.broken != nil {
		return nil, g.broken
	}

	content, typ, err := g.readObject(h)
	if err != nil {
		if !errors.Is(err, plumbing.ErrObjectNotFound) {
			g.broken = err
		}
		return nil, err
	}
	if typ != "commit" {
		return nil, fmt.Errorf("object %s is a %s: %w", h, typ, plumbing.ErrObjectNotFound)
	}

	obj := &plumbing.MemoryObject{}
	obj.SetType(plumbing.CommitObject)
	if _, err := obj.Write(content); err != nil {
		return nil, err
	}

	c := &object.Commit{}
	if err := c.Decode(obj); err != nil {
		return nil, fmt.Errorf("decode commit %s: %w", h, err)
	}
	return c, nil
}

// readObject performs one request/response exchange with cat-file.
// Responses are "<oid> <type> <size>\n<content>\n" or "<oid> missing\n".
func (g *CLIGraph) readObject(h plumbing.Hash) ([]byte, string, error) {
	if _, err := io.WriteString(g.stdin, h.String()+"\n"); err != nil {
		return nil, "", g.processError(err)
	}

	header, err := g.stdout.ReadString('\n')
	if err != nil {
		return nil, "", g.processError(err)
	}
	fields := strings.Fields(header)
	if len(fields) == 2 && fields[1] == "missing" {
		return nil, "", fmt.Errorf("commit %s: %w", h, plumbing.ErrObjectNotFound)
	}
	if len(fields) != 3 {
		return nil, "", fmt.Errorf("git cat-file: malformed header %q", strings.TrimSpace(header))
	}

	size, err := strconv.Atoi(fields[2])
	if err != nil {
		return nil, "", fmt.Errorf("git cat-file: malformed size in %q", strings.TrimSpace(header))
	}

	// Content plus the trailing newline.
	buf := make([]byte, size+1)
	if _, err := io.ReadFull(g.stdout, buf); err != nil {
		return nil, "", g.processError(err)
	}
	return buf[:size], fields[1], nil
}

func (g *CLIGraph) processError(err error) error {
	if msg := strings.TrimSpace(g.stderr.String()); msg != "" {
		return fmt.Errorf("git cat-file failed: %w: %s", err, msg)
	}
	return fmt.Errorf("git cat-file failed: %w", err)
}

// Close stops the cat-file process.
func (g *CLIGraph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cmd == nil {
		return nil
	}
	_ = g.stdin.Close()
	err := g.cmd.Wait()
	g.cmd = nil
	if g.broken == nil {
		g.broken = errors.New("git cat-file: graph closed")
	}
	return err
}
