// Package document converts Notes Station document trees into markdown.
//
// A note's content is a JSON tree of typed nodes (paragraphs, headings, lists,
// tables, text with marks, attachments). The Converter walks it recursively and
// emits markdown in the dialect understood by the note store: attachments and
// images are uploaded through an injected ResourceInserter and referenced as
// `[title](:/resourceId)`.
//
// # Escaping
//
// Raw content passes through the two-phase backslash contract described in
// escaping.go before it is decoded; see EscapeBackslashes and UnescapeContent.
//
// # Example
//
//	conv := document.NewConverter(archiveReader, storeClient, logger)
//	result, err := conv.Convert(ctx, "1/4/2", note.Content)
//	fmt.Println(result.Markdown)
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mrlokans/notestation-importer/internal/logging"
)

// ResourceKind is the archive folder an attachment payload lives in.
type ResourceKind string

const (
	ResourceAttachment ResourceKind = "attachment"
	ResourceImage      ResourceKind = "image"
)

// ResourceRefPrefix prefixes resource ids in link destinations.
const ResourceRefPrefix = ":/"

// ErrMissingSource is returned for file and image nodes without a src attribute.
var ErrMissingSource = errors.New("attachment node has no source")

// ResourceFetcher reads attachment payloads from the archive.
type ResourceFetcher interface {
	Resource(location string, kind ResourceKind, id string) ([]byte, error)
}

// ResourceInserter stores an attachment in the note store and returns its remote id.
type ResourceInserter interface {
	InsertResource(ctx context.Context, title string, data []byte) (string, error)
}

// WarningType categorizes conversion warnings.
type WarningType string

const (
	WarningUnknownNode         WarningType = "unknown_node"
	WarningUnknownMark         WarningType = "unknown_mark"
	WarningDroppedContent      WarningType = "dropped_content"
	WarningUnresolvedReference WarningType = "unresolved_reference"
)

// Warning is a non-fatal issue met while converting a note.
type Warning struct {
	Type     WarningType `json:"type"`
	NodeType string      `json:"nodeType,omitempty"`
	Message  string      `json:"message"`
}

// Result holds the output of a conversion.
type Result struct {
	Markdown string
	// Resources lists the remote ids embedded in Markdown, in emission order.
	Resources []string
	Warnings  []Warning
}

// Converter turns raw note content into markdown.
type Converter struct {
	fetcher  ResourceFetcher
	inserter ResourceInserter
	logger   logging.Logger
}

// NewConverter creates a converter using the given capabilities for attachments.
func NewConverter(fetcher ResourceFetcher, inserter ResourceInserter, logger logging.Logger) *Converter {
	return &Converter{
		fetcher:  fetcher,
		inserter: inserter,
		logger:   logging.Ensure(logger),
	}
}

// Convert decodes raw content of the note stored at location and renders it.
func (c *Converter) Convert(ctx context.Context, location, raw string) (*Result, error) {
	root, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("note %s: %w", location, err)
	}
	return c.ConvertTree(ctx, location, root)
}

// ConvertTree renders an already decoded document tree.
func (c *Converter) ConvertTree(ctx context.Context, location string, root *Node) (*Result, error) {
	r := &renderer{ctx: ctx, location: location, conv: c, result: &Result{}}

	md, err := r.blocks(root.Children, 0)
	if err != nil {
		return nil, fmt.Errorf("note %s: %w", location, err)
	}
	r.result.Markdown = md

	for _, w := range CheckLinks(md, r.result.Resources) {
		r.warn(w)
	}
	return r.result, nil
}

// renderer carries the per-note state of one conversion. Quotation depth and list
// indentation are passed explicitly to each method rather than stored here.
type renderer struct {
	ctx      context.Context
	location string
	conv     *Converter
	result   *Result
}

func (r *renderer) warn(w Warning) {
	r.result.Warnings = append(r.result.Warnings, w)
	r.conv.logger.Warn("conversion warning", "location", r.location, "type", w.Type, "node", w.NodeType, "message", w.Message)
}

func (r *renderer) warnNode(t WarningType, n *Node, where string) {
	r.warn(Warning{Type: t, NodeType: n.Type, Message: fmt.Sprintf("%s node %q in %s", n.Kind, n.Type, where)})
}

// blocks renders a sequence of block nodes at the given quotation depth. Every
// block is followed by a newline; blockquotes recurse at depth+1.
func (r *renderer) blocks(nodes []*Node, depth int) (string, error) {
	var b strings.Builder
	lastBlank := true

	for _, n := range nodes {
		if n.Kind == KindBlockquote {
			inner, err := r.blocks(n.Children, depth+1)
			if err != nil {
				return "", err
			}
			b.WriteString(inner)
			b.WriteString(quote("\n", depth))
			lastBlank = true
			continue
		}

		text, ok, err := r.block(n)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if n.Kind == KindHorizontalRule && !lastBlank {
			b.WriteString(quote("\n", depth))
		}
		text += "\n"
		b.WriteString(quote(text, depth))
		lastBlank = strings.HasSuffix(text, "\n\n")
	}

	return b.String(), nil
}

// block renders a single block node without its trailing separator. ok is false
// when nothing should be emitted.
func (r *renderer) block(n *Node) (text string, ok bool, err error) {
	switch n.Kind {
	case KindParagraph:
		text, err = r.inline(n.Children)
	case KindHeading:
		var inner string
		inner, err = r.inline(n.Children)
		text = strings.Repeat("#", n.Level) + " " + inner
	case KindTable:
		text, err = r.table(n)
	case KindCheckList:
		text, err = r.checkList(n, 0)
	case KindBulletList:
		text, err = r.list(n, "- ", 0)
	case KindOrderedList:
		text, err = r.list(n, "1. ", 0)
	case KindHorizontalRule:
		text = "---\n"
	case KindCodeBlock:
		text = r.code(n)
	case KindText, KindFile, KindImage, KindHardBreak:
		text, err = r.inline([]*Node{n})
	case KindDoc:
		text, err = r.blocks(n.Children, 0)
		text = strings.TrimSuffix(text, "\n")
	case KindBlockquote:
		text, err = r.blocks(n.Children, 1)
		text = strings.TrimSuffix(text, "\n")
	case KindTableRow, KindTableCell, KindListItem, KindCheckListItem:
		r.warnNode(WarningDroppedContent, n, "block context")
		return "", false, nil
	case KindUnknown:
		r.warnNode(WarningUnknownNode, n, "block context")
		return "", false, nil
	default:
		panic(fmt.Sprintf("document: unhandled block kind %d", n.Kind))
	}
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}

// inline concatenates the inline content of a paragraph-like node.
func (r *renderer) inline(nodes []*Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Kind {
		case KindText:
			b.WriteString(r.text(n))
		case KindFile:
			md, err := r.attachment(n, ResourceAttachment)
			if err != nil {
				return "", err
			}
			b.WriteString(md)
		case KindImage:
			md, err := r.attachment(n, ResourceImage)
			if err != nil {
				return "", err
			}
			b.WriteString(md)
		case KindHardBreak:
			b.WriteString("<br/>")
		default:
			r.warnNode(WarningUnknownNode, n, "inline context")
			b.WriteString(n.Text)
		}
	}
	return b.String(), nil
}

// text wraps the literal text with the sigils of its marks. All opening sigils
// come first in mark order and the same run closes the text; a link mark replaces
// the text with a markdown link before wrapping.
func (r *renderer) text(n *Node) string {
	text := n.Text
	var sigils strings.Builder

	for _, m := range n.Marks {
		switch m.Kind {
		case MarkEmphasis:
			sigils.WriteString("*")
		case MarkStrong:
			sigils.WriteString("**")
		case MarkSuperscript:
			sigils.WriteString("^")
		case MarkSubscript:
			sigils.WriteString("~")
		case MarkLink:
			text = "[" + text + "](" + m.Href + ")"
		case MarkUnknown:
			r.warn(Warning{Type: WarningUnknownMark, NodeType: m.Type, Message: fmt.Sprintf("mark %q ignored", m.Type)})
		default:
			panic(fmt.Sprintf("document: unhandled mark kind %d", m.Kind))
		}
	}

	s := sigils.String()
	return s + text + s
}

func (r *renderer) table(n *Node) (string, error) {
	var rows []string
	first := true

	for _, row := range n.Children {
		if row.Kind != KindTableRow {
			r.warnNode(WarningDroppedContent, row, "table")
			continue
		}

		cells := make([]string, 0, len(row.Children))
		for _, cell := range row.Children {
			if cell.Kind != KindTableCell {
				r.warnNode(WarningDroppedContent, cell, "table row")
				continue
			}
			var paras []string
			for _, p := range cell.Children {
				if p.Kind != KindParagraph {
					r.warnNode(WarningDroppedContent, p, "table cell")
					continue
				}
				txt, err := r.inline(p.Children)
				if err != nil {
					return "", err
				}
				paras = append(paras, txt)
			}
			cells = append(cells, escapePipes(strings.Join(paras, "<br/>")))
		}

		rows = append(rows, "|"+strings.Join(cells, "|")+"|")
		if first {
			divider := make([]string, len(cells))
			for i := range divider {
				divider[i] = "-"
			}
			rows = append(rows, "|"+strings.Join(divider, "|")+"|")
			first = false
		}
	}

	return strings.Join(rows, "\n"), nil
}

// list renders a bullet or ordered list. Each item's paragraphs get the marker at
// the current indentation; nested lists recurse one level deeper.
func (r *renderer) list(n *Node, marker string, indent int) (string, error) {
	var b strings.Builder
	for _, item := range n.Children {
		for _, nested := range itemContent(item) {
			switch nested.Kind {
			case KindParagraph:
				txt, err := r.inline(nested.Children)
				if err != nil {
					return "", err
				}
				b.WriteString(tabs(indent) + marker + txt + "\n")
			case KindBulletList, KindOrderedList, KindCheckList:
				txt, err := r.nestedList(nested, indent+1)
				if err != nil {
					return "", err
				}
				b.WriteString(txt)
			default:
				r.warnNode(WarningDroppedContent, nested, "list item")
			}
		}
	}
	return b.String(), nil
}

func (r *renderer) checkList(n *Node, indent int) (string, error) {
	var b strings.Builder
	for _, item := range n.Children {
		checked := " "
		if item.Checked {
			checked = "x"
		}

		var txt strings.Builder
		var nested strings.Builder
		for _, child := range itemContent(item) {
			switch child.Kind {
			case KindParagraph:
				s, err := r.inline(child.Children)
				if err != nil {
					return "", err
				}
				txt.WriteString(s)
			case KindBulletList, KindOrderedList, KindCheckList:
				s, err := r.nestedList(child, indent+1)
				if err != nil {
					return "", err
				}
				nested.WriteString(s)
			default:
				r.warnNode(WarningDroppedContent, child, "check list item")
			}
		}

		b.WriteString(tabs(indent) + "- [" + checked + "] " + txt.String() + "\n")
		b.WriteString(nested.String())
	}
	return b.String(), nil
}

func (r *renderer) nestedList(n *Node, indent int) (string, error) {
	switch n.Kind {
	case KindBulletList:
		return r.list(n, "- ", indent)
	case KindOrderedList:
		return r.list(n, "1. ", indent)
	default:
		return r.checkList(n, indent)
	}
}

// code renders a fenced block from the raw text children; marks are not applied.
func (r *renderer) code(n *Node) string {
	var body strings.Builder
	for _, c := range n.Children {
		switch c.Kind {
		case KindText:
			body.WriteString(c.Text)
		case KindHardBreak:
			body.WriteString("\n")
		default:
			r.warnNode(WarningDroppedContent, c, "code block")
		}
	}

	s := body.String()
	if s != "" && !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return "```\n" + s + "```"
}

// attachment uploads the payload referenced by a file or image node and returns
// the markdown link to the stored resource.
func (r *renderer) attachment(n *Node, kind ResourceKind) (string, error) {
	id := n.Src
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return "", fmt.Errorf("%s %q: %w", kind, n.Title, ErrMissingSource)
	}

	title := n.Title
	if title == "" {
		title = id
	}

	data, err := r.conv.fetcher.Resource(r.location, kind, id)
	if err != nil {
		return "", fmt.Errorf("fetch %s %s: %w", kind, id, err)
	}

	remoteID, err := r.conv.inserter.InsertResource(r.ctx, title, data)
	if err != nil {
		return "", fmt.Errorf("insert %s %q: %w", kind, title, err)
	}
	r.result.Resources = append(r.result.Resources, remoteID)

	sign := ""
	if kind == ResourceImage {
		sign = "!"
	}
	return fmt.Sprintf("%s[%s](%s%s)", sign, title, ResourceRefPrefix, remoteID), nil
}

// itemContent returns the children of a list item. Malformed lists whose entries
// are bare paragraphs are treated as single-paragraph items.
func itemContent(item *Node) []*Node {
	if item.Kind == KindListItem || item.Kind == KindCheckListItem {
		return item.Children
	}
	return []*Node{item}
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func tabs(indent int) string {
	return strings.Repeat("\t", indent)
}

// quote prefixes every line of s with a run of depth '>' characters.
func quote(s string, depth int) string {
	if depth == 0 {
		return s
	}
	prefix := strings.Repeat(">", depth)
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}
