package core

import "context"

// Collection is the host's store of templates and notes.
// Adhering to this interface keeps the core independent of the underlying
// storage (a flashcard database, a directory of files, SQL, ...).
type Collection interface {
	// Templates returns every template currently defined by the host.
	Templates(ctx context.Context) ([]Template, error)

	// NotesFor returns the notes bound to t.
	NotesFor(ctx context.Context, t Template) ([]Note, error)

	// Persist writes a modified note back to the host.
	Persist(ctx context.Context, n Note) error
}

// Refresher is implemented by collections whose view must be reloaded after a
// batch of changes.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// MediaStore receives files produced by strategies (images, audio).
type MediaStore interface {
	// AddFile copies the file at path into the store and returns the name
	// under which notes should reference it.
	AddFile(ctx context.Context, path string) (string, error)
}

// TemplateResolver is implemented by collections that can look up the current
// definition of a template. Batch updates use it to catch templates edited
// after their notes were listed.
type TemplateResolver interface {
	// Template returns the template called name, or ErrTemplateNotFound.
	Template(ctx context.Context, name string) (Template, error)
}
