// Package archivetest builds in-memory Notes Station archives for tests.
package archivetest

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"path"
	"testing"
)

// Note describes a note file to place in the archive.
type Note struct {
	Location string
	Name     string
	// Content is the document tree as JSON; it is string-encoded into the note file
	// the way Notes Station does.
	Content string
	Tags    []string
}

type section struct {
	name      string
	locations []string
}

type notebook struct {
	name     string
	sections []*section
}

// Builder accumulates notebooks, notes and attachments.
type Builder struct {
	notebooks []*notebook
	files     map[string][]byte
	order     []string
	structure []byte
}

func New() *Builder {
	return &Builder{files: map[string][]byte{}}
}

// Section declares a section, creating its notebook on first use.
func (b *Builder) Section(nbName, secName string) *Builder {
	b.section(nbName, secName)
	return b
}

// Note adds a note to the given section and writes its noteInfo.json.
func (b *Builder) Note(nbName, secName string, n Note) *Builder {
	sec := b.section(nbName, secName)
	sec.locations = append(sec.locations, n.Location)

	tags := make([]map[string]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		tags = append(tags, map[string]string{"tag_name": t})
	}
	data, _ := json.Marshal(map[string]any{
		"note_name": n.Name,
		"content":   n.Content,
		"tag_list":  tags,
	})
	return b.File(path.Join(n.Location, "noteInfo.json"), data)
}

// File stores an arbitrary entry, such as an attachment payload.
func (b *Builder) File(name string, data []byte) *Builder {
	if _, ok := b.files[name]; !ok {
		b.order = append(b.order, name)
	}
	b.files[name] = data
	return b
}

// RawStructure replaces the generated data.json with data.
func (b *Builder) RawStructure(data []byte) *Builder {
	b.structure = data
	return b
}

// Bytes returns the encoded zip container.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	structure := b.structure
	if structure == nil {
		structure = b.encodeStructure()
	}
	write(t, zw, "data.json", structure)
	for _, name := range b.order {
		write(t, zw, name, b.files[name])
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func (b *Builder) section(nbName, secName string) *section {
	var nb *notebook
	for _, candidate := range b.notebooks {
		if candidate.name == nbName {
			nb = candidate
		}
	}
	if nb == nil {
		nb = &notebook{name: nbName}
		b.notebooks = append(b.notebooks, nb)
	}
	for _, sec := range nb.sections {
		if sec.name == secName {
			return sec
		}
	}
	sec := &section{name: secName}
	nb.sections = append(nb.sections, sec)
	return sec
}

func (b *Builder) encodeStructure() []byte {
	notebooks := make([]map[string]any, 0, len(b.notebooks))
	for _, nb := range b.notebooks {
		sections := make([]map[string]any, 0, len(nb.sections))
		for _, sec := range nb.sections {
			notes := make([]map[string]string, 0, len(sec.locations))
			for _, loc := range sec.locations {
				notes = append(notes, map[string]string{"note_location": loc})
			}
			sections = append(sections, map[string]any{"sec_name": sec.name, "note_list": notes})
		}
		notebooks = append(notebooks, map[string]any{"nb_name": nb.name, "sec_list": sections})
	}
	data, _ := json.Marshal(map[string]any{"notebooks": notebooks})
	return data
}

func write(t testing.TB, zw *zip.Writer, name string, data []byte) {
	t.Helper()
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// ParagraphDoc returns a document tree with one paragraph per text.
func ParagraphDoc(texts ...string) string {
	blocks := make([]map[string]any, 0, len(texts))
	for _, text := range texts {
		blocks = append(blocks, map[string]any{
			"type":    "paragraph",
			"content": []map[string]any{{"type": "text", "text": text}},
		})
	}
	data, _ := json.Marshal(map[string]any{"type": "doc", "content": blocks})
	return string(data)
}

// AttachmentDoc returns a document tree holding a single file or image node.
func AttachmentDoc(nodeType, src, title string) string {
	data, _ := json.Marshal(map[string]any{
		"type": "doc",
		"content": []map[string]any{{
			"type": "paragraph",
			"content": []map[string]any{{
				"type":  nodeType,
				"attrs": map[string]string{"src": src, "title": title},
			}},
		}},
	})
	return string(data)
}
