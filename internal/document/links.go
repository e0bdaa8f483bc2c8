package document

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var linkParser = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)).Parser()

// ResourceLinks returns the resource ids referenced by links and images in markdown,
// in document order.
func ResourceLinks(markdown string) []string {
	src := []byte(markdown)
	doc := linkParser.Parse(text.NewReader(src))

	var ids []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var dest []byte
		switch v := n.(type) {
		case *ast.Link:
			dest = v.Destination
		case *ast.Image:
			dest = v.Destination
		default:
			return ast.WalkContinue, nil
		}
		if id, ok := strings.CutPrefix(string(dest), ResourceRefPrefix); ok && id != "" {
			ids = append(ids, id)
		}
		return ast.WalkContinue, nil
	})
	return ids
}

// CheckLinks reports resource links in markdown that point at ids outside known.
func CheckLinks(markdown string, known []string) []Warning {
	set := make(map[string]struct{}, len(known))
	for _, id := range known {
		set[id] = struct{}{}
	}

	var warnings []Warning
	for _, id := range ResourceLinks(markdown) {
		if _, ok := set[id]; ok {
			continue
		}
		warnings = append(warnings, Warning{
			Type:    WarningUnresolvedReference,
			Message: fmt.Sprintf("link to resource %q that was not imported with this note", id),
		})
	}
	return warnings
}
