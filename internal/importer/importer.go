// Package importer walks a Notes Station archive and recreates its notebooks,
// sections, notes, tags and attachments in the note store.
//
// The traversal is strictly sequential:
//
//	resolve insertion folder
//	  → per notebook: create folder
//	    → per section: create folder
//	      → per note: read, convert, create note
//	        → per tag: resolve or create tag, link it to the note
//
// Every failure other than the documented warnings aborts the run. Items already
// written to the store are left in place.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/notestation-importer/internal/archive"
	"github.com/mrlokans/notestation-importer/internal/document"
	"github.com/mrlokans/notestation-importer/internal/entities"
	"github.com/mrlokans/notestation-importer/internal/journal"
	"github.com/mrlokans/notestation-importer/internal/logging"
	"github.com/mrlokans/notestation-importer/internal/notestore"
)

// DefaultProgressTimeout bounds how long a progress callback may run before the
// import stops waiting for it.
const DefaultProgressTimeout = 5 * time.Second

// ErrInsertionPointNotFound means no remote folder matched the insertion point.
var ErrInsertionPointNotFound = errors.New("insertion point not found")

// Source provides the archive contents.
type Source interface {
	Structure() (*archive.Structure, error)
	Note(location string) (*archive.Note, error)
	Resource(location string, kind document.ResourceKind, id string) ([]byte, error)
}

// Store is the subset of the note store client used by the importer.
type Store interface {
	FindFolder(ctx context.Context, title string) (*notestore.Item, error)
	CreateFolder(ctx context.Context, parentID, title string) (*notestore.Item, error)
	CreateNote(ctx context.Context, parentID, title, markdown string) (*notestore.Item, error)
	EnsureTag(ctx context.Context, name string) (*notestore.Item, bool, error)
	LinkTag(ctx context.Context, tagID, noteID string) error
	UploadResource(ctx context.Context, title string, data []byte) (*notestore.Resource, error)
}

// Journal receives a record of every write and warning.
type Journal interface {
	RecordEvent(event *entities.ImportEvent) error
}

var (
	_ Source  = (*archive.Reader)(nil)
	_ Store   = (*notestore.Client)(nil)
	_ Journal = (*journal.Journal)(nil)
)

// Warning is a non-fatal issue raised during an import.
type Warning struct {
	Location string
	Message  string
}

// Result summarizes an import. It is returned even when the import fails and then
// reflects what was written before the failure.
type Result struct {
	Notebooks         int
	Sections          int
	Notes             int
	TagsLinked        int
	TagsSkipped       int
	ResourcesUploaded int
	ResourcesReused   int
	Warnings          []Warning
}

// Counters converts the result into journal counters.
func (r *Result) Counters() entities.RunCounters {
	return entities.RunCounters{
		Notebooks:         r.Notebooks,
		Sections:          r.Sections,
		Notes:             r.Notes,
		TagsLinked:        r.TagsLinked,
		TagsSkipped:       r.TagsSkipped,
		ResourcesUploaded: r.ResourcesUploaded,
		ResourcesReused:   r.ResourcesReused,
		Warnings:          len(r.Warnings),
	}
}

// Importer runs imports. It is not safe for concurrent use.
type Importer struct {
	source          Source
	store           Store
	converter       *document.Converter
	logger          logging.Logger
	journal         Journal
	runID           string
	progress        func()
	progressTimeout time.Duration

	result   *Result
	location string
}

// Option configures an Importer.
type Option func(*Importer)

func WithLogger(l logging.Logger) Option {
	return func(i *Importer) { i.logger = logging.Ensure(l) }
}

// WithJournal records every event of the run runID in j.
func WithJournal(j Journal, runID string) Option {
	return func(i *Importer) {
		i.journal = j
		i.runID = runID
	}
}

// WithProgress sets the callback invoked after each folder, note and tag link.
func WithProgress(fn func()) Option {
	return func(i *Importer) { i.progress = fn }
}

func WithProgressTimeout(d time.Duration) Option {
	return func(i *Importer) {
		if d > 0 {
			i.progressTimeout = d
		}
	}
}

// WithConverterLogger sets the logger handed to the document converter.
func WithConverterLogger(l logging.Logger) Option {
	return func(i *Importer) { i.converter = document.NewConverter(i.source, &uploadTracker{importer: i}, l) }
}

func New(source Source, store Store, opts ...Option) *Importer {
	i := &Importer{
		source:          source,
		store:           store,
		logger:          logging.NoOp(),
		progressTimeout: DefaultProgressTimeout,
	}
	i.converter = document.NewConverter(source, &uploadTracker{importer: i}, nil)
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import recreates the whole archive under the folder named insertionPoint.
func (i *Importer) Import(ctx context.Context, insertionPoint string) (*Result, error) {
	i.result = &Result{}

	root, err := i.store.FindFolder(ctx, insertionPoint)
	if err != nil {
		if errors.Is(err, notestore.ErrNotFound) {
			return i.result, fmt.Errorf("%w: %q", ErrInsertionPointNotFound, insertionPoint)
		}
		return i.result, fmt.Errorf("resolve insertion point: %w", err)
	}
	i.logger.Info("resolved insertion point", "name", insertionPoint, "id", root.ID)

	structure, err := i.source.Structure()
	if err != nil {
		return i.result, err
	}

	for _, nb := range structure.Notebooks {
		if err := ctx.Err(); err != nil {
			return i.result, err
		}
		i.logger.Info("importing notebook", "name", nb.Name)
		nbFolder, err := i.createFolder(ctx, root.ID, nb.Name)
		if err != nil {
			return i.result, fmt.Errorf("notebook %q: %w", nb.Name, err)
		}
		i.result.Notebooks++

		for _, sec := range nb.Sections {
			i.logger.Info("importing section", "notebook", nb.Name, "name", sec.Name)
			secFolder, err := i.createFolder(ctx, nbFolder.ID, sec.Name)
			if err != nil {
				return i.result, fmt.Errorf("section %q/%q: %w", nb.Name, sec.Name, err)
			}
			i.result.Sections++

			for _, ref := range sec.Notes {
				if err := ctx.Err(); err != nil {
					return i.result, err
				}
				if err := i.importNote(ctx, secFolder.ID, ref.Location); err != nil {
					return i.result, err
				}
			}
		}
	}

	return i.result, nil
}

// ImportNote imports the single note at location into the existing folder parentID.
func (i *Importer) ImportNote(ctx context.Context, parentID, location string) (*Result, error) {
	i.result = &Result{}
	if err := i.importNote(ctx, parentID, location); err != nil {
		return i.result, err
	}
	return i.result, nil
}

func (i *Importer) createFolder(ctx context.Context, parentID, title string) (*notestore.Item, error) {
	folder, err := i.store.CreateFolder(ctx, parentID, title)
	if err != nil {
		return nil, err
	}
	i.record(entities.EventFolder, title, folder.ID, "")
	i.notifyProgress()
	return folder, nil
}

func (i *Importer) importNote(ctx context.Context, parentID, location string) error {
	i.location = location
	defer func() { i.location = "" }()

	note, err := i.source.Note(location)
	if err != nil {
		return fmt.Errorf("read note %s: %w", location, err)
	}
	i.logger.Info("importing note", "location", location, "title", note.Name)

	converted, err := i.converter.Convert(ctx, location, note.Content)
	if err != nil {
		return fmt.Errorf("convert note %q: %w", note.Name, err)
	}
	for _, w := range converted.Warnings {
		i.warn(fmt.Sprintf("%s: %s", w.Type, w.Message))
	}

	created, err := i.store.CreateNote(ctx, parentID, note.Name, converted.Markdown)
	if err != nil {
		return fmt.Errorf("create note %q: %w", note.Name, err)
	}
	i.result.Notes++
	i.record(entities.EventNote, note.Name, created.ID, "")
	i.notifyProgress()

	for _, tag := range note.Tags {
		if err := i.linkTag(ctx, created.ID, tag.Name); err != nil {
			return fmt.Errorf("tag %q on note %q: %w", tag.Name, note.Name, err)
		}
	}
	return nil
}

func (i *Importer) linkTag(ctx context.Context, noteID, name string) error {
	i.logger.Debug("linking tag", "tag", name, "note", noteID)

	tag, created, err := i.store.EnsureTag(ctx, name)
	if err != nil {
		return err
	}
	if tag == nil || tag.ID == "" {
		i.result.TagsSkipped++
		i.record(entities.EventTagSkipped, name, "", "no tag id acquired")
		i.warn(fmt.Sprintf("no tag id acquired for %q; link skipped", name))
		return nil
	}
	if created {
		i.logger.Debug("created tag", "tag", name, "id", tag.ID)
	}

	if err := i.store.LinkTag(ctx, tag.ID, noteID); err != nil {
		return err
	}
	i.result.TagsLinked++
	i.record(entities.EventTagLink, name, tag.ID, noteID)
	i.notifyProgress()
	return nil
}

func (i *Importer) warn(msg string) {
	i.result.Warnings = append(i.result.Warnings, Warning{Location: i.location, Message: msg})
	i.logger.Warn(msg, "location", i.location)
	i.record(entities.EventWarning, "", "", msg)
}

// record writes to the journal. Journal failures are logged and never abort.
func (i *Importer) record(kind entities.EventKind, title, remoteID, message string) {
	if i.journal == nil {
		return
	}
	err := i.journal.RecordEvent(&entities.ImportEvent{
		RunID:    i.runID,
		Kind:     kind,
		Location: i.location,
		Title:    title,
		RemoteID: remoteID,
		Message:  message,
	})
	if err != nil {
		i.logger.Warn("journal write failed", "kind", kind, "error", err)
	}
}

// notifyProgress calls the progress callback. A panicking callback is recovered
// and one that outlives the progress timeout is left running in the background.
func (i *Importer) notifyProgress() {
	if i.progress == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				i.logger.Warn("progress callback panicked", "panic", fmt.Sprint(r))
			}
		}()
		i.progress()
	}()

	timer := time.NewTimer(i.progressTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		i.logger.Warn("progress callback timed out", "timeout", i.progressTimeout.String())
	}
}

// uploadTracker inserts attachments through the store and counts reuse.
type uploadTracker struct {
	importer *Importer
}

func (u *uploadTracker) InsertResource(ctx context.Context, title string, data []byte) (string, error) {
	i := u.importer
	res, err := i.store.UploadResource(ctx, title, data)
	if err != nil {
		return "", err
	}
	if res.Reused {
		i.result.ResourcesReused++
		i.record(entities.EventResourceReused, title, res.ID, "")
	} else {
		i.result.ResourcesUploaded++
		i.record(entities.EventResourceUploaded, title, res.ID, "")
	}
	return res.ID, nil
}
