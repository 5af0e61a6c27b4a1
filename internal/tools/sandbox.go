package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// maxLinkHops bounds how many dangling symlinks Resolve follows by hand.
const maxLinkHops = 40

// PathEscapeError reports a relative path whose target falls outside the workspace.
type PathEscapeError struct {
	Path   string
	Reason string
}

func (e *PathEscapeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsafe path blocked: %s (%s)", e.Path, e.Reason)
	}
	return fmt.Sprintf("unsafe path blocked: %s", e.Path)
}

// Sandbox resolves relative paths against a fixed root and refuses any that
// would land outside it.
type Sandbox struct {
	root string
}

// NewSandbox creates root if needed and pins its canonical location.
func NewSandbox(root string) (*Sandbox, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	return &Sandbox{root: canonical}, nil
}

// Root returns the canonical workspace root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve returns the canonical absolute target of rel. It never touches the
// filesystem beyond reading link metadata. Targets outside the root and link
// loops are a *PathEscapeError; any other OS failure while reading links, such
// as a directory that cannot be searched, is a *WriteError.
func (s *Sandbox) Resolve(rel string) (string, error) {
	candidate := rel
	if !filepath.IsAbs(candidate) && filepath.VolumeName(candidate) == "" {
		candidate = filepath.Join(s.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	target, err := canonicalize(candidate, 0)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && !errors.Is(err, syscall.ELOOP) {
			return "", &WriteError{Path: rel, Cause: err}
		}
		return "", &PathEscapeError{Path: rel, Reason: err.Error()}
	}
	if !s.contains(target) {
		return "", &PathEscapeError{Path: rel}
	}
	return target, nil
}

// contains is a boundary-aware strict prefix check: the root itself and
// siblings such as root+"-evil" are outside.
func (s *Sandbox) contains(target string) bool {
	prefix := s.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix) && len(target) > len(prefix)
}

// canonicalize resolves symlinks in every existing component of p. Components
// that do not exist yet are appended lexically; dangling links are followed
// so a write through them cannot leave the root.
func canonicalize(p string, hops int) (string, error) {
	if hops > maxLinkHops {
		return "", errors.New("too many levels of symbolic links")
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
		return "", err
	}

	if info, lerr := os.Lstat(p); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(p)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(filepath.Dir(p), link)
		}
		return canonicalize(filepath.Clean(link), hops+1)
	}

	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	base, err := canonicalize(parent, hops)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(p)), nil
}
