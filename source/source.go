package source

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/athena/core"
)

// DefaultRoot is the source root used when none is configured.
const DefaultRoot = "claudelogs"

// Layout places a category on disk.
type Layout struct {
	Category   core.Category
	Dir        string
	Extensions []string
}

// DefaultLayouts lists the directory and extensions of every category.
var DefaultLayouts = []Layout{
	{Category: core.CategoryConversation, Dir: "sessions", Extensions: []string{".md"}},
	{Category: core.CategoryTaskHistory, Dir: "todos", Extensions: []string{".json"}},
	{Category: core.CategoryEnvironment, Dir: "shell-snapshots", Extensions: []string{".sh"}},
}

// Entry is a discovered document that has not been read yet.
type Entry struct {
	Path       string
	Category   core.Category
	DocumentID string
	ModTime    time.Time
	Size       int64
}

// Source reads transcripts from a root directory.
type Source struct {
	root    string
	layouts map[core.Category]Layout
	logger  *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger.With("component", "source")
		}
	}
}

// WithLayout replaces the layout of one category.
func WithLayout(layout Layout) Option {
	return func(s *Source) {
		s.layouts[layout.Category] = layout
	}
}

// New creates a Source rooted at root.
func New(root string, opts ...Option) *Source {
	s := &Source{
		root:    root,
		layouts: make(map[core.Category]Layout, len(DefaultLayouts)),
		logger:  slog.Default().With("component", "source"),
	}
	for _, l := range DefaultLayouts {
		s.layouts[l.Category] = l
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Root() string { return s.root }

// Dir returns the directory holding documents of category.
func (s *Source) Dir(category core.Category) (string, error) {
	layout, ok := s.layouts[category]
	if !ok {
		return "", core.ErrUnknownCategory
	}
	return filepath.Join(s.root, layout.Dir), nil
}

// Discover lists the documents of one category sorted by file name.
// A missing category directory yields no entries.
func (s *Source) Discover(category core.Category) ([]Entry, error) {
	layout, ok := s.layouts[category]
	if !ok {
		return nil, core.ErrUnknownCategory
	}
	dir := filepath.Join(s.root, layout.Dir)

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("category directory not found", "category", category, "dir", dir)
			return nil, nil
		}
		return nil, &core.SourceReadError{Path: dir, Err: err}
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !layout.matches(name) {
			continue
		}
		entry := Entry{
			Path:       filepath.Join(dir, name),
			Category:   category,
			DocumentID: DocumentID(name),
		}
		if info, err := de.Info(); err == nil {
			entry.ModTime = info.ModTime().UTC()
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}

	// os.ReadDir already sorts by name; keep the order explicit.
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return strings.Compare(filepath.Base(a.Path), filepath.Base(b.Path))
	})

	s.logger.Debug("discovered documents", "category", category, "count", len(entries))
	return entries, nil
}

// Read loads the content of a discovered entry.
func (s *Source) Read(entry Entry) (*core.SourceDocument, error) {
	return readDocument(entry.Path, entry.Category, entry.DocumentID)
}

// ReadFile loads a single file outside discovery. The category is taken from
// the name of the containing directory when it matches a layout, otherwise
// from the file extension, otherwise conversation.
func (s *Source) ReadFile(path string) (*core.SourceDocument, error) {
	return readDocument(path, s.CategoryForPath(path), DocumentID(path))
}

// CategoryForPath infers the category of a file outside discovery.
func (s *Source) CategoryForPath(path string) core.Category {
	parent := filepath.Base(filepath.Dir(path))
	for _, c := range core.Categories {
		if l, ok := s.layouts[c]; ok && l.Dir == parent {
			return c
		}
	}
	for _, c := range core.Categories {
		if l, ok := s.layouts[c]; ok && l.matches(path) {
			return c
		}
	}
	return core.CategoryConversation
}

func (l Layout) matches(name string) bool {
	if len(l.Extensions) == 0 {
		return true
	}
	return slices.Contains(l.Extensions, strings.ToLower(filepath.Ext(name)))
}

func readDocument(path string, category core.Category, documentID string) (*core.SourceDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &core.SourceReadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &core.SourceReadError{Path: path, Err: errors.New("is a directory")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.SourceReadError{Path: path, Err: err}
	}

	content := string(data)
	return &core.SourceDocument{
		Path:       path,
		Category:   category,
		DocumentID: documentID,
		Title:      Title(content),
		Content:    content,
		ModTime:    info.ModTime().UTC(),
		Size:       info.Size(),
	}, nil
}
