package model

import (
	"errors"
	"fmt"
	"strings"
)

// FileID identifies a file by its (device, inode) pair.
//
// The pair is the primary key of the index: a rename changes the path but
// keeps the FileID, so a renamed file is an update of the existing record,
// never a second record.
type FileID struct {
	Dev   uint64 `json:"dev"`
	Inode uint64 `json:"inode"`
}

// String returns a string representation of the FileID.
func (id FileID) String() string {
	return fmt.Sprintf("%d:%d", id.Dev, id.Inode)
}

// FileMeta holds the structured attributes of one file.
//
// A FileMeta is immutable once committed within a generation; an upsert with
// the same FileID supersedes the previous record in the next generation.
type FileMeta struct {
	ID    FileID `json:"id"`
	Path  string `json:"path"`
	Name  string `json:"name"`
	Ext   string `json:"ext,omitempty"`
	MTime int64  `json:"mtime"`
	Size  uint64 `json:"size"`
}

// ErrEmptyPath is returned when a FileMeta has no path.
var ErrEmptyPath = errors.New("file meta path must not be empty")

// Validate checks that the meta record is well formed.
//
// A missing Name is derived from the last path element rather than rejected,
// since hosts commonly fill only the path.
func (m *FileMeta) Validate() error {
	if strings.TrimSpace(m.Path) == "" {
		return ErrEmptyPath
	}
	if m.Name == "" {
		m.Name = baseName(m.Path)
	}
	return nil
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Scope restricts which indexed files a query may match.
//
// The numeric values are part of the C boundary contract and must not be
// reordered.
type Scope int32

const (
	// ScopeName matches against file names only; content postings are ignored.
	ScopeName Scope = 0
	// ScopeContent matches against indexed content only; records without
	// postings never match.
	ScopeContent Scope = 1
	// ScopeAll matches against both names and content. This is the default,
	// and any unknown scope value degrades to it.
	ScopeAll Scope = 2
	// ScopePathPrefix restricts matching to records whose path starts with
	// SearchQuery.PathPrefix, matching names and content within that subtree.
	ScopePathPrefix Scope = 3
)

// Normalize maps unknown scope values to ScopeAll.
func (s Scope) Normalize() Scope {
	switch s {
	case ScopeName, ScopeContent, ScopeAll, ScopePathPrefix:
		return s
	default:
		return ScopeAll
	}
}

// DefaultLimit caps result sets when the caller passes a non-positive limit.
const DefaultLimit = 50

// SearchQuery describes one ranked query against the index.
type SearchQuery struct {
	// Term is the free-text query. Empty means unconstrained.
	Term string
	// Glob is a shell-style pattern (*, ?, [...], **). Empty matches
	// everything. A pattern without a path separator is matched against the
	// file name; a pattern containing a separator is matched against the
	// full path.
	Glob string
	// Scope restricts the match domain. See Scope.
	Scope Scope
	// PathPrefix restricts matching to a subtree when Scope is
	// ScopePathPrefix. Ignored otherwise.
	PathPrefix string
	// Limit caps the result count. Non-positive values default to
	// DefaultLimit.
	Limit int
}

// Hit is one ranked query result. All fields are engine-owned copies; a hit
// stays valid after later commits reclaim the generation it came from.
type Hit struct {
	Path  string
	Name  string
	MTime int64
	Size  uint64
	Score float32
}

// UpdateResult reports what an upsert did.
type UpdateResult int

const (
	// UpdateAdded means the identity was not present in the committed index.
	UpdateAdded UpdateResult = iota
	// UpdateChanged means an existing record will be superseded at the next
	// commit.
	UpdateChanged
	// UpdateSkipped means the committed record already matches the incoming
	// path, mtime and size, so nothing was staged.
	UpdateSkipped
)

// String returns a string representation of the UpdateResult.
func (r UpdateResult) String() string {
	switch r {
	case UpdateAdded:
		return "added"
	case UpdateChanged:
		return "changed"
	case UpdateSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("UpdateResult(%d)", int(r))
	}
}
