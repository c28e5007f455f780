package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/git"
)

// Layout defaults.
const (
	DefaultSystemDir = ".ankihorse"
	DefaultMediaDir  = "media"
	DefaultPattern   = "**/*"
	TemplatesFile    = "templates.yaml"
	LockFile         = "lock"
)

// ErrLocked is returned by Lock when another process holds the vault.
var ErrLocked = errors.New("vault is locked by another process")

// Config holds the configuration of a filesystem vault.
type Config struct {
	Path      string
	SystemDir string // e.g. ".ankihorse"
	MediaDir  string // relative to Path, e.g. "media"
	Pattern   string // doublestar pattern selecting note files, relative to Path
	Logger    *slog.Logger
	ReadOnly  bool
	MustExist bool
	AutoInit  bool // create the layout (and a git repository when Git is set)
	Git       bool // record batch runs as git commits

	// Serializers maps file extensions to note formats. Defaults to DefaultSerializers.
	Serializers map[string]Serializer
	// ErrorHandler receives watcher errors. Defaults to logging them.
	ErrorHandler func(error)
}

// Vault is a directory of note files acting as a flashcard collection.
//
// Templates live in <vault>/<system>/templates.yaml, notes are Markdown files
// with frontmatter (or YAML/JSON documents) anywhere else, and media files
// are kept in <vault>/<media>. Vault implements core.Collection,
// core.MediaStore and core.Refresher.
type Vault struct {
	Path        string
	config      Config
	serializers map[string]Serializer
	cache       *cache
	git         *git.Client
	logger      *slog.Logger

	mu            sync.RWMutex
	watcherActive bool
	lastRefresh   *time.Time
}

var (
	_ core.Collection = (*Vault)(nil)
	_ core.MediaStore = (*Vault)(nil)
	_ core.Refresher  = (*Vault)(nil)
)

// NewVault creates a vault. Call Initialize before use.
func NewVault(config Config) *Vault {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.MediaDir == "" {
		config.MediaDir = DefaultMediaDir
	}
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	serializers := config.Serializers
	if serializers == nil {
		serializers = DefaultSerializers()
	}

	return &Vault{
		Path:        config.Path,
		config:      config,
		serializers: serializers,
		cache:       newCache(config.Path, config.SystemDir),
		git:         git.NewClient(config.Path, config.Logger),
		logger:      config.Logger,
	}
}

// Initialize checks or creates the vault layout and loads the field snapshots.
func (v *Vault) Initialize(ctx context.Context) error {
	if v.config.MustExist {
		info, err := os.Stat(v.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", v.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", v.Path)
		}
	} else if !v.config.ReadOnly {
		if err := os.MkdirAll(v.Path, 0755); err != nil {
			return fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	if v.config.AutoInit && !v.config.ReadOnly {
		for _, dir := range []string{v.systemPath(), v.mediaPath()} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
		}
		if _, err := os.Stat(v.templatesPath()); os.IsNotExist(err) {
			if err := writeFileAtomic(v.templatesPath(), []byte("[]\n"), 0644); err != nil {
				return fmt.Errorf("failed to create templates file: %w", err)
			}
		}
	}

	if v.config.Git {
		if err := v.initGit(ctx); err != nil {
			return err
		}
	}

	if err := v.cache.Load(); err != nil {
		v.logger.Warn("ignoring field snapshots", "path", v.cache.Path, "error", err)
	}
	return nil
}

func (v *Vault) initGit(ctx context.Context) error {
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}
	if !v.git.IsRepo() {
		if !v.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", v.Path)
		}
		if err := v.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
	}
	if _, err := v.ensureIgnore(); err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	return nil
}

// ensureIgnore keeps the lock and snapshot files out of version control.
// Templates stay tracked.
func (v *Vault) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(v.Path, ".gitignore")
	wanted := []string{
		v.config.SystemDir + "/" + LockFile,
		v.config.SystemDir + "/" + IndexFile,
	}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, w := range wanted {
		if !present[w] {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Templates reads the template file. It is read on every call because
// templates can be edited while the vault is in use. A missing file means
// no templates.
func (v *Vault) Templates(ctx context.Context) ([]core.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(v.templatesPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	var templates []core.Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", TemplatesFile, err)
	}
	seen := make(map[string]bool, len(templates))
	for _, t := range templates {
		if t.Name == "" {
			return nil, fmt.Errorf("invalid %s: template without a name", TemplatesFile)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("invalid %s: duplicate template %q", TemplatesFile, t.Name)
		}
		seen[t.Name] = true
	}
	return templates, nil
}

var _ core.TemplateResolver = (*Vault)(nil)

// Template returns the template called name as the template file defines it now.
func (v *Vault) Template(ctx context.Context, name string) (core.Template, error) {
	templates, err := v.Templates(ctx)
	if err != nil {
		return core.Template{}, err
	}
	for _, t := range templates {
		if t.Name == name {
			return t, nil
		}
	}
	return core.Template{}, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, name)
}

// SaveTemplates replaces the template file.
func (v *Vault) SaveTemplates(ctx context.Context, templates []core.Template) error {
	if v.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if templates == nil {
		templates = []core.Template{}
	}
	data, err := yaml.Marshal(templates)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(v.systemPath(), 0755); err != nil {
		return err
	}
	return writeFileAtomic(v.templatesPath(), data, 0644)
}

// NotesFor returns the notes bound to t, ordered by ID. Files that cannot be
// parsed are skipped.
func (v *Vault) NotesFor(ctx context.Context, t core.Template) ([]core.Note, error) {
	var notes []core.Note
	err := v.walk(ctx, func(id, path string) error {
		n, err := v.read(id, path, func(name string) (core.Template, bool) {
			return t, name == t.Name
		})
		if err == nil {
			notes = append(notes, n)
		}
		return nil
	})
	return notes, err
}

// Notes returns every note bound to a known template.
func (v *Vault) Notes(ctx context.Context) ([]*Note, error) {
	lookup, err := v.templateLookup(ctx)
	if err != nil {
		return nil, err
	}
	var notes []*Note
	err = v.walk(ctx, func(id, path string) error {
		if n, err := v.read(id, path, lookup); err == nil {
			notes = append(notes, n)
		}
		return nil
	})
	return notes, err
}

// Note reads one note by ID.
func (v *Vault) Note(ctx context.Context, id string) (*Note, error) {
	lookup, err := v.templateLookup(ctx)
	if err != nil {
		return nil, err
	}
	path, err := v.pathOf(id)
	if err != nil {
		return nil, err
	}
	n, err := v.read(id, path, lookup)
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", core.ErrNoteNotFound, id)
	}
	return n, err
}

// Create writes a new note bound to the named template. An ID without an
// extension gets ".md". Fields the template does not declare are ignored.
func (v *Vault) Create(ctx context.Context, id, template string, fields map[string]string) (*Note, error) {
	if v.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	t, err := v.Template(ctx, template)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(id) == "" {
		id += ".md"
	}
	path, err := v.pathOf(id)
	if err != nil {
		return nil, err
	}
	if _, ok := v.serializers[filepath.Ext(id)]; !ok {
		return nil, fmt.Errorf("unsupported note format %q", filepath.Ext(id))
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("note %s: %w", id, iofs.ErrExist)
	}

	n := &Note{
		id:       id,
		path:     path,
		ext:      filepath.Ext(id),
		template: t,
		doc: &Document{
			Template: t.Name,
			Fields:   make(map[string]string, len(t.Fields)),
			Extra:    make(map[string]any),
		},
	}
	for _, f := range t.Fields {
		n.doc.Fields[f] = fields[f]
	}
	if err := v.Persist(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Persist writes a note read from this vault back to its file. The field
// snapshot is updated before the write, so the watcher does not report the
// change as an edit.
func (v *Vault) Persist(ctx context.Context, n core.Note) error {
	if v.config.ReadOnly {
		return core.ErrReadOnly
	}
	note, ok := n.(*Note)
	if !ok || !v.owns(note) {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedNote, n.ID())
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ser, ok := v.serializers[note.ext]
	if !ok {
		return fmt.Errorf("unsupported note format %q", note.ext)
	}
	data, err := ser.Serialize(note.doc, note.template.Fields)
	if err != nil {
		return fmt.Errorf("failed to serialize note %s: %w", note.id, err)
	}

	snap := snapshotOf(note)
	prev, existed := v.cache.Set(note.id, snap)

	if err := os.MkdirAll(filepath.Dir(note.path), 0755); err != nil {
		v.cache.Restore(note.id, prev, existed)
		return fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(note.path, data, 0644); err != nil {
		v.cache.Restore(note.id, prev, existed)
		return fmt.Errorf("failed to write note %s: %w", note.id, err)
	}

	if info, err := os.Stat(note.path); err == nil {
		note.modTime = info.ModTime()
		snap.LastModified = note.modTime
		v.cache.Set(note.id, snap)
	}
	return nil
}

// Refresh re-snapshots every note and saves the snapshots, so the next
// watcher session starts from the state left by a batch run.
func (v *Vault) Refresh(ctx context.Context) error {
	notes, err := v.Notes(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(notes))
	for _, n := range notes {
		keep[n.id] = true
		v.cache.Set(n.id, snapshotOf(n))
	}
	v.cache.Prune(keep)

	if !v.config.ReadOnly {
		if err := v.cache.Save(); err != nil {
			return fmt.Errorf("failed to save field snapshots: %w", err)
		}
	}
	v.recordRefresh()
	return nil
}

// Commit records all changes of the vault as one git commit. It does
// nothing when git is not enabled or nothing changed.
func (v *Vault) Commit(ctx context.Context, msg string) error {
	if !v.config.Git || v.config.ReadOnly {
		return nil
	}
	err := v.git.Commit(ctx, msg)
	if errors.Is(err, git.ErrNothingToCommit) {
		return nil
	}
	return err
}

// Lock takes the inter-process vault lock, waiting until ctx is done.
// The returned function releases it.
func (v *Vault) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(v.systemPath(), 0755); err != nil {
		return nil, err
	}
	fl := flock.New(filepath.Join(v.systemPath(), LockFile))
	ok, err := fl.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocked, err)
		}
		return nil, fmt.Errorf("failed to lock vault: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}

// walk visits the note candidates of the vault in lexical order.
func (v *Vault) walk(ctx context.Context, fn func(id, path string) error) error {
	err := filepath.WalkDir(v.Path, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if path == v.Path && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.Path && v.skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		id, err := v.resolveID(path)
		if err != nil || !v.isNoteFile(id) {
			return nil
		}
		return fn(id, path)
	})
	return err
}

func (v *Vault) skipDir(path string) bool {
	name := filepath.Base(path)
	return name == ".git" || path == v.systemPath() || path == v.mediaPath()
}

// isNoteFile reports whether a vault-relative path names a note candidate.
func (v *Vault) isNoteFile(id string) bool {
	if isTempFile(id) {
		return false
	}
	if _, ok := v.serializers[filepath.Ext(id)]; !ok {
		return false
	}
	match, err := doublestar.Match(v.config.Pattern, id)
	return err == nil && match
}

// read parses a note file and binds it to the template lookup returns.
func (v *Vault) read(id, path string, lookup func(string) (core.Template, bool)) (*Note, error) {
	ser, ok := v.serializers[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("unsupported note format %q", filepath.Ext(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := ser.Parse(data)
	if err != nil {
		if !errors.Is(err, errNotANote) {
			v.logger.Debug("skipping unparseable note", "path", path, "error", err)
		}
		return nil, err
	}
	t, ok := lookup(doc.Template)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrTemplateNotFound, doc.Template)
	}
	return &Note{
		id:       id,
		path:     path,
		ext:      filepath.Ext(path),
		template: t,
		doc:      doc,
		modTime:  info.ModTime(),
	}, nil
}

func (v *Vault) templateLookup(ctx context.Context) (func(string) (core.Template, bool), error) {
	templates, err := v.Templates(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]core.Template, len(templates))
	for _, t := range templates {
		byName[t.Name] = t
	}
	return func(name string) (core.Template, bool) {
		t, ok := byName[name]
		return t, ok
	}, nil
}

// resolveID converts an absolute path inside the vault to a note ID.
func (v *Vault) resolveID(path string) (string, error) {
	rel, err := filepath.Rel(v.Path, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the vault", path)
	}
	return filepath.ToSlash(rel), nil
}

// pathOf converts a note ID to an absolute path inside the vault.
func (v *Vault) pathOf(id string) (string, error) {
	path := filepath.Join(v.Path, filepath.FromSlash(id))
	if _, err := v.resolveID(path); err != nil {
		return "", err
	}
	return path, nil
}

func (v *Vault) owns(n *Note) bool {
	path, err := v.pathOf(n.id)
	return err == nil && path == n.path
}

func (v *Vault) systemPath() string    { return filepath.Join(v.Path, v.config.SystemDir) }
func (v *Vault) mediaPath() string     { return filepath.Join(v.Path, v.config.MediaDir) }
func (v *Vault) templatesPath() string { return filepath.Join(v.systemPath(), TemplatesFile) }
