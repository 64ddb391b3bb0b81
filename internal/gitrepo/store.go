// Package gitrepo stores sheet content as a git repository per key, one
// commit per save, so every saved state stays retrievable.
package gitrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"spreadsheet/api/internal/persist"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const contentFile = "content.json"

var hexHashPattern = regexp.MustCompile(`^[0-9a-f]{4,40}$`)

type Store struct {
	baseDir string
	author  string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		author:  "sheet",
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(key)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, persist.ErrNotFound
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return readContentFromCommit(commitObj)
}

// Put commits value as the new content. Writing the current content again
// records nothing.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.openOrInit(key)
	if err != nil {
		return err
	}

	var previous []byte
	if head, err := repo.Head(); err == nil {
		if commitObj, err := repo.CommitObject(head.Hash()); err == nil {
			previous, _ = readContentFromCommit(commitObj)
		}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, value, "", "  "); err != nil {
		return fmt.Errorf("format content: %w", err)
	}
	pretty.WriteByte('\n')

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, contentFile), pretty.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", contentFile, err)
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return fmt.Errorf("git add content: %w", err)
	}

	_, err = worktree.Commit(commitMessage(previous, value), &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: s.author + "@localhost",
			When:  time.Now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit content: %w", err)
	}
	return nil
}

// Revisions lists commits for key, newest first. A limit of zero or less
// lists all of them.
func (s *Store) Revisions(_ context.Context, key string, limit int) ([]persist.Revision, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(key)
	if errors.Is(err, persist.ErrNotFound) {
		return []persist.Revision{}, nil
	}
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []persist.Revision{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]persist.Revision, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toRevision(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// GetRevision returns the content stored at a commit, full or abbreviated.
func (s *Store) GetRevision(_ context.Context, key, hash string) ([]byte, error) {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(key)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return nil, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, persist.ErrNotFound
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return readContentFromCommit(commitObj)
}

func (s *Store) Ping(context.Context) error {
	info, err := os.Stat(s.baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return os.MkdirAll(s.baseDir, 0o755)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.baseDir)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) open(key string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(key))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, persist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Store) openOrInit(key string) (*git.Repository, error) {
	repo, err := s.open(key)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, persist.ErrNotFound) {
		return nil, err
	}

	path := s.repoPath(key)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Store) repoPath(key string) string {
	return filepath.Join(s.baseDir, dirName(key))
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[key]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[key] = lock
	return lock
}

// dirName maps a storage key to a single path element. Sheet keys use
// only letters, digits, '-', '_' and ':', and ':' maps to '.', so distinct
// keys get distinct directories.
func dirName(key string) string {
	var b strings.Builder
	for _, r := range key {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('.')
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func commitMessage(previous, next []byte) string {
	if previous == nil {
		return "Create sheet"
	}
	before, err := persist.Decode(previous, -1)
	if err != nil {
		return "Update sheet"
	}
	after, err := persist.Decode(next, -1)
	if err != nil || len(before) != len(after) {
		return "Update sheet"
	}
	changed := 0
	for i := range before {
		if before[i] != after[i] {
			changed++
		}
	}
	if changed == 1 {
		return "Update 1 cell"
	}
	return fmt.Sprintf("Update %d cells", changed)
}

func readContentFromCommit(commitObj *object.Commit) ([]byte, error) {
	file, err := commitObj.File(contentFile)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", contentFile, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open content reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read content bytes: %w", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("decode commit content: %w", err)
	}
	return compact.Bytes(), nil
}

func toRevision(commitObj *object.Commit) persist.Revision {
	return persist.Revision{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

// resolveHash accepts a full or abbreviated hex commit hash. Ref names and
// revision expressions such as HEAD~1 are rejected.
func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	hash = strings.ToLower(hash)
	if !hexHashPattern.MatchString(hash) {
		return plumbing.ZeroHash, fmt.Errorf("%w: revision %s", persist.ErrNotFound, hash)
	}
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: revision %s", persist.ErrNotFound, hash)
	}
	return *resolved, nil
}
