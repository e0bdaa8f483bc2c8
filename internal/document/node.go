package document

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the type of a content node.
type Kind int

const (
	KindUnknown Kind = iota
	KindDoc
	KindParagraph
	KindHeading
	KindTable
	KindTableRow
	KindTableCell
	KindCheckList
	KindCheckListItem
	KindBulletList
	KindOrderedList
	KindListItem
	KindHorizontalRule
	KindBlockquote
	KindCodeBlock
	KindText
	KindFile
	KindImage
	KindHardBreak
)

var kindNames = map[string]Kind{
	"doc":             KindDoc,
	"paragraph":       KindParagraph,
	"heading":         KindHeading,
	"table":           KindTable,
	"table_row":       KindTableRow,
	"table_cell":      KindTableCell,
	"check_list":      KindCheckList,
	"check_list_item": KindCheckListItem,
	"bullet_list":     KindBulletList,
	"ordered_list":    KindOrderedList,
	"list_item":       KindListItem,
	"horizontal_rule": KindHorizontalRule,
	"blockquote":      KindBlockquote,
	"code_block":      KindCodeBlock,
	"text":            KindText,
	"file":            KindFile,
	"image":           KindImage,
	"hard_break":      KindHardBreak,
}

// ParseKind maps a node type name to its Kind. Unrecognised names yield KindUnknown.
func ParseKind(name string) Kind {
	return kindNames[name]
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "unknown"
}

// MarkKind identifies an inline mark applied to a text node.
type MarkKind int

const (
	MarkUnknown MarkKind = iota
	MarkEmphasis
	MarkStrong
	MarkSuperscript
	MarkSubscript
	MarkLink
)

var markNames = map[string]MarkKind{
	"em":          MarkEmphasis,
	"strong":      MarkStrong,
	"superscript": MarkSuperscript,
	"subscript":   MarkSubscript,
	"link":        MarkLink,
}

// ParseMarkKind maps a mark type name to its MarkKind.
func ParseMarkKind(name string) MarkKind {
	return markNames[name]
}

// Mark is an inline mark. Href is only set for links.
type Mark struct {
	Kind MarkKind
	Type string
	Href string
}

// Node is one element of a note's document tree. Only the attributes relevant to
// the node's Kind are populated.
type Node struct {
	Kind Kind
	// Type is the raw type name, kept for warnings about unknown kinds.
	Type string

	Level   int    // heading
	Checked bool   // check_list_item
	Src     string // file, image
	Title   string // file, image
	Text    string // text
	Marks   []Mark // text

	Children []*Node
}

type wireNode struct {
	Type    string      `json:"type"`
	Attrs   wireAttrs   `json:"attrs"`
	Text    string      `json:"text"`
	Marks   []wireMark  `json:"marks"`
	Content []*wireNode `json:"content"`
}

type wireAttrs struct {
	Level   json.Number `json:"level"`
	Checked bool        `json:"checked"`
	Src     string      `json:"src"`
	Title   string      `json:"title"`
}

type wireMark struct {
	Type  string `json:"type"`
	Attrs struct {
		Href string `json:"href"`
	} `json:"attrs"`
}

type wireDoc struct {
	Content []*wireNode `json:"content"`
}

// Parse applies the escaping fix-ups to a note's raw content and decodes the
// document tree. The returned node is a KindDoc holding the top-level blocks.
func Parse(raw string) (*Node, error) {
	var doc wireDoc
	if err := json.Unmarshal([]byte(UnescapeContent(raw)), &doc); err != nil {
		return nil, fmt.Errorf("decode document tree: %w", err)
	}
	root := &Node{Kind: KindDoc, Type: "doc"}
	children, err := buildNodes(doc.Content)
	if err != nil {
		return nil, err
	}
	root.Children = children
	return root, nil
}

func buildNodes(wire []*wireNode) ([]*Node, error) {
	nodes := make([]*Node, 0, len(wire))
	for _, w := range wire {
		if w == nil {
			continue
		}
		n, err := buildNode(w)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func buildNode(w *wireNode) (*Node, error) {
	n := &Node{
		Kind:    ParseKind(w.Type),
		Type:    w.Type,
		Checked: w.Attrs.Checked,
		Src:     w.Attrs.Src,
		Title:   w.Attrs.Title,
		Text:    w.Text,
	}
	if w.Attrs.Level != "" {
		level, err := w.Attrs.Level.Int64()
		if err != nil {
			return nil, fmt.Errorf("heading level %q: %w", w.Attrs.Level, err)
		}
		n.Level = int(level)
	}
	for _, m := range w.Marks {
		n.Marks = append(n.Marks, Mark{Kind: ParseMarkKind(m.Type), Type: m.Type, Href: m.Attrs.Href})
	}
	children, err := buildNodes(w.Content)
	if err != nil {
		return nil, err
	}
	n.Children = children
	return n, nil
}
