// Package archive reads Notes Station export archives.
//
// An archive is a zip container holding a structure file (data.json) that lists
// notebooks, their sections and the locations of the notes in each section. Every
// note lives under its location as noteInfo.json, with attachments stored next to
// it under {location}/{kind}/{id}.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/mrlokans/notestation-importer/internal/document"
	"github.com/mrlokans/notestation-importer/internal/logging"
)

const (
	// StructureFile is the archive entry describing the notebook tree.
	StructureFile = "data.json"
	// NoteFile is the entry name of a note under its location.
	NoteFile = "noteInfo.json"
)

// ResourceKind is the folder an attachment is stored in.
type ResourceKind = document.ResourceKind

// Structure is the decoded notebook tree of an archive.
type Structure struct {
	Notebooks []Notebook
}

// Notebook is a top-level container of sections.
type Notebook struct {
	Name     string
	Sections []Section
}

// Section groups note references inside a notebook.
type Section struct {
	Name  string
	Notes []NoteRef
}

// NoteRef points at a note inside the archive.
type NoteRef struct {
	Location string
}

// Note is a decoded note file. Content is still an encoded document tree in which
// double backslashes have been replaced by document.BackslashSentinel.
type Note struct {
	Location string
	Name     string
	Content  string
	Tags     []Tag
}

// Tag is a tag attached to a note.
type Tag struct {
	Name string
}

type structureFile struct {
	Notebooks []struct {
		Name     string `json:"nb_name"`
		Sections []struct {
			Name  string `json:"sec_name"`
			Notes []struct {
				Location string `json:"note_location"`
			} `json:"note_list"`
		} `json:"sec_list"`
	} `json:"notebooks"`
}

type noteFile struct {
	Name    string `json:"note_name"`
	Content string `json:"content"`
	Tags    []struct {
		Name string `json:"tag_name"`
	} `json:"tag_list"`
}

// Reader gives access to the entries of an opened archive.
type Reader struct {
	files  map[string]*zip.File
	closer io.Closer
	logger logging.Logger
}

var _ document.ResourceFetcher = (*Reader)(nil)

// Open opens the archive file. The caller must Close the returned reader.
func Open(filename string, logger logging.Logger) (*Reader, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveCorrupt, filename, err)
	}
	r := newReader(&zr.Reader, logger)
	r.closer = zr
	return r, nil
}

// NewReader builds a reader over an archive held in r.
func NewReader(r io.ReaderAt, size int64, logger logging.Logger) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}
	return newReader(zr, logger), nil
}

// OpenBytes is a convenience wrapper around NewReader for in-memory archives.
func OpenBytes(data []byte, logger logging.Logger) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)), logger)
}

func newReader(zr *zip.Reader, logger logging.Logger) *Reader {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[cleanName(f.Name)] = f
	}
	return &Reader{files: files, logger: logging.Ensure(logger)}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// Structure reads and validates the archive's structure file.
func (r *Reader) Structure() (*Structure, error) {
	data, err := r.read(StructureFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrArchiveCorrupt, StructureFile, err)
	}
	if err := validateStructure(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveCorrupt, err)
	}

	var file structureFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrArchiveCorrupt, StructureFile, err)
	}

	s := &Structure{Notebooks: make([]Notebook, 0, len(file.Notebooks))}
	for _, nb := range file.Notebooks {
		notebook := Notebook{Name: nb.Name}
		for _, sec := range nb.Sections {
			section := Section{Name: sec.Name}
			for _, n := range sec.Notes {
				section.Notes = append(section.Notes, NoteRef{Location: n.Location})
			}
			notebook.Sections = append(notebook.Sections, section)
		}
		s.Notebooks = append(s.Notebooks, notebook)
	}

	r.logger.Debug("structure loaded", "notebooks", len(s.Notebooks))
	return s, nil
}

// Locations returns every note location of the archive in traversal order.
func (r *Reader) Locations() ([]string, error) {
	s, err := r.Structure()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, nb := range s.Notebooks {
		for _, sec := range nb.Sections {
			for _, n := range sec.Notes {
				out = append(out, n.Location)
			}
		}
	}
	return out, nil
}

// Note reads the note stored at location.
func (r *Reader) Note(location string) (*Note, error) {
	data, err := r.read(path.Join(location, NoteFile))
	if err != nil {
		return nil, err
	}

	escaped, substituted, collision := document.EscapeBackslashes(string(data))
	if collision {
		r.logger.Warn("note already contains the backslash sentinel; backslashes may not be restored exactly",
			"location", location, "sentinel", document.BackslashSentinel)
	}
	if substituted {
		r.logger.Warn("note contains double backslashes", "location", location)
	}

	var file noteFile
	if err := json.Unmarshal([]byte(escaped), &file); err != nil {
		return nil, fmt.Errorf("%w: note %s: %v", ErrArchiveCorrupt, location, err)
	}

	note := &Note{
		Location: location,
		Name:     document.UnescapeBackslashes(file.Name),
		Content:  file.Content,
	}
	for _, t := range file.Tags {
		note.Tags = append(note.Tags, Tag{Name: document.UnescapeBackslashes(t.Name)})
	}
	return note, nil
}

// Resource reads the attachment payload {location}/{kind}/{id}.
func (r *Reader) Resource(location string, kind ResourceKind, id string) ([]byte, error) {
	return r.read(path.Join(location, string(kind), id))
}

func (r *Reader) read(name string) ([]byte, error) {
	f, ok := r.files[cleanName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrResourceMissing, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrArchiveCorrupt, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArchiveCorrupt, name, err)
	}
	return data, nil
}

func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Exists reports whether path names a regular file.
func Exists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
