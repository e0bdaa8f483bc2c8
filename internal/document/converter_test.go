package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeArchive struct {
	data  map[string][]byte
	calls []string
	err   error
}

func (f *fakeArchive) Resource(location string, kind ResourceKind, id string) ([]byte, error) {
	f.calls = append(f.calls, location+"/"+string(kind)+"/"+id)
	if f.err != nil {
		return nil, f.err
	}
	return f.data[id], nil
}

type fakeStore struct {
	titles []string
	sizes  []int
}

func (f *fakeStore) InsertResource(_ context.Context, title string, data []byte) (string, error) {
	f.titles = append(f.titles, title)
	f.sizes = append(f.sizes, len(data))
	return fmt.Sprintf("r%d", len(f.titles)), nil
}

func doc(blocks ...string) string {
	return `{"type":"doc","content":[` + strings.Join(blocks, ",") + `]}`
}

func para(inline ...string) string {
	return `{"type":"paragraph","content":[` + strings.Join(inline, ",") + `]}`
}

func txt(s string) string {
	return `{"type":"text","text":"` + s + `"}`
}

func convert(t *testing.T, raw string) *Result {
	t.Helper()
	conv := NewConverter(&fakeArchive{}, &fakeStore{}, nil)
	result, err := conv.Convert(context.Background(), "1/1/1", raw)
	require.NoError(t, err)
	return result
}

func TestConvert_Heading(t *testing.T) {
	result := convert(t, doc(`{"type":"heading","attrs":{"level":2},"content":[`+txt("Title")+`]}`))

	assert.Equal(t, "## Title\n", result.Markdown)
	assert.Empty(t, result.Warnings)
}

func TestConvert_HeadingRendersAllInlineChildren(t *testing.T) {
	strong := `{"type":"text","text":"bold","marks":[{"type":"strong"}]}`
	result := convert(t, doc(`{"type":"heading","attrs":{"level":1},"content":[`+txt("a ")+`,`+strong+`]}`))

	assert.Equal(t, "# a **bold**\n", result.Markdown)
}

func TestConvert_Paragraphs(t *testing.T) {
	result := convert(t, doc(para(txt("one")), para(txt("two"))))

	assert.Equal(t, "one\ntwo\n", result.Markdown)
}

func TestConvert_NestedLists(t *testing.T) {
	nested := `{"type":"ordered_list","content":[{"type":"list_item","content":[` + para(txt("nested")) + `]}]}`
	list := `{"type":"bullet_list","content":[{"type":"list_item","content":[` + para(txt("p")) + `,` + nested + `]}]}`

	result := convert(t, doc(list))

	assert.Equal(t, "- p\n\t1. nested\n\n", result.Markdown)
}

func TestConvert_ListSkipsNullItems(t *testing.T) {
	list := `{"type":"bullet_list","content":[null,{"type":"list_item","content":[` + para(txt("only")) + `]},null]}`

	result := convert(t, doc(list))

	assert.Equal(t, "- only\n\n", result.Markdown)
}

func TestConvert_CheckList(t *testing.T) {
	list := `{"type":"check_list","content":[` +
		`{"type":"check_list_item","attrs":{"checked":true},"content":[` + para(txt("done")) + `]},` +
		`{"type":"check_list_item","attrs":{"checked":false},"content":[` + para(txt("todo")) + `]}]}`

	result := convert(t, doc(list))

	assert.Equal(t, "- [x] done\n- [ ] todo\n\n", result.Markdown)
}

func TestConvert_CheckListWithNestedList(t *testing.T) {
	nested := `{"type":"bullet_list","content":[{"type":"list_item","content":[` + para(txt("sub")) + `]}]}`
	list := `{"type":"check_list","content":[` +
		`{"type":"check_list_item","attrs":{"checked":false},"content":[` + para(txt("top")) + `,` + nested + `]}]}`

	result := convert(t, doc(list))

	assert.Equal(t, "- [ ] top\n\t- sub\n\n", result.Markdown)
}

func TestConvert_MarksWrapInOrder(t *testing.T) {
	text := `{"type":"text","text":"x","marks":[{"type":"strong"},{"type":"em"}]}`

	result := convert(t, doc(para(text)))

	assert.Equal(t, "***x***\n", result.Markdown)
}

func TestConvert_SuperscriptAndSubscript(t *testing.T) {
	sup := `{"type":"text","text":"2","marks":[{"type":"superscript"}]}`
	sub := `{"type":"text","text":"i","marks":[{"type":"subscript"}]}`

	result := convert(t, doc(para(txt("x"), sup, txt(" a"), sub)))

	assert.Equal(t, "x^2^ a~i~\n", result.Markdown)
}

func TestConvert_LinkMarkReplacesTextBeforeWrapping(t *testing.T) {
	text := `{"type":"text","text":"site","marks":[{"type":"link","attrs":{"href":"https://example.com"}},{"type":"strong"}]}`

	result := convert(t, doc(para(text)))

	assert.Equal(t, "**[site](https://example.com)**\n", result.Markdown)
}

func TestConvert_Table(t *testing.T) {
	cell := func(s string) string { return `{"type":"table_cell","content":[` + para(txt(s)) + `]}` }
	row := func(cells ...string) string { return `{"type":"table_row","content":[` + strings.Join(cells, ",") + `]}` }
	table := `{"type":"table","content":[` + row(cell("a"), cell("b")) + `,` + row(cell("c"), cell("d")) + `]}`

	result := convert(t, doc(table))

	assert.Equal(t, "|a|b|\n|-|-|\n|c|d|\n", result.Markdown)
}

func TestConvert_TableCellEscapesPipesAndJoinsParagraphs(t *testing.T) {
	cell := `{"type":"table_cell","content":[` + para(txt("a|b")) + `,` + para(txt("c")) + `]}`
	table := `{"type":"table","content":[{"type":"table_row","content":[` + cell + `]}]}`

	result := convert(t, doc(table))

	assert.Equal(t, "|a\\|b<br/>c|\n|-|\n", result.Markdown)
}

func TestConvert_Blockquote(t *testing.T) {
	quote := `{"type":"blockquote","content":[` + para(txt("q")) + `]}`

	result := convert(t, doc(quote, para(txt("after"))))

	assert.Equal(t, ">q\n\nafter\n", result.Markdown)
}

func TestConvert_NestedBlockquote(t *testing.T) {
	inner := `{"type":"blockquote","content":[` + para(txt("deep")) + `]}`
	outer := `{"type":"blockquote","content":[` + para(txt("q")) + `,` + inner + `]}`

	result := convert(t, doc(outer))

	assert.Equal(t, ">q\n>>deep\n>\n\n", result.Markdown)
}

func TestConvert_HorizontalRuleIsSeparatedFromParagraph(t *testing.T) {
	result := convert(t, doc(para(txt("a")), `{"type":"horizontal_rule"}`, para(txt("b"))))

	assert.Equal(t, "a\n\n---\n\nb\n", result.Markdown)
}

func TestConvert_CodeBlockIgnoresMarks(t *testing.T) {
	code := `{"type":"code_block","content":[{"type":"text","text":"x := 1","marks":[{"type":"strong"}]}]}`

	result := convert(t, doc(code))

	assert.Equal(t, "```\nx := 1\n```\n", result.Markdown)
}

func TestConvert_HardBreak(t *testing.T) {
	result := convert(t, doc(para(txt("a"), `{"type":"hard_break"}`, txt("b"))))

	assert.Equal(t, "a<br/>b\n", result.Markdown)
}

func TestConvert_BackslashSentinelBecomesBackslash(t *testing.T) {
	// A literal backslash in note text is double-encoded in the note file and
	// arrives here as two sentinels.
	raw := doc(para(txt("C:" + BackslashSentinel + BackslashSentinel + "temp")))

	result := convert(t, raw)

	assert.Equal(t, "C:\\temp\n", result.Markdown)
}

func TestConvert_FileAndImage(t *testing.T) {
	archive := &fakeArchive{data: map[string][]byte{"abc": []byte("pdf-bytes"), "img1": []byte("png")}}
	store := &fakeStore{}
	conv := NewConverter(archive, store, nil)

	file := `{"type":"file","attrs":{"src":"attachment/abc","title":"doc.pdf"}}`
	image := `{"type":"image","attrs":{"src":"https://nas/image/img1","title":"pic.png"}}`

	result, err := conv.Convert(context.Background(), "1/2/3", doc(para(file), para(image)))
	require.NoError(t, err)

	assert.Equal(t, "[doc.pdf](:/r1)\n![pic.png](:/r2)\n", result.Markdown)
	assert.Equal(t, []string{"r1", "r2"}, result.Resources)
	assert.Equal(t, []string{"1/2/3/attachment/abc", "1/2/3/image/img1"}, archive.calls)
	assert.Equal(t, []string{"doc.pdf", "pic.png"}, store.titles)
	assert.Equal(t, []int{9, 3}, store.sizes)
	assert.Empty(t, result.Warnings)
}

func TestConvert_FetchErrorIsReturned(t *testing.T) {
	missing := errors.New("no such member")
	conv := NewConverter(&fakeArchive{err: missing}, &fakeStore{}, nil)

	_, err := conv.Convert(context.Background(), "1/1/1", doc(para(`{"type":"file","attrs":{"src":"a/b","title":"t"}}`)))

	require.Error(t, err)
	assert.ErrorIs(t, err, missing)
}

func TestConvert_FileWithoutSource(t *testing.T) {
	conv := NewConverter(&fakeArchive{}, &fakeStore{}, nil)

	_, err := conv.Convert(context.Background(), "1/1/1", doc(para(`{"type":"file","attrs":{"title":"t"}}`)))

	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestConvert_UnknownNodeAndMarkProduceWarnings(t *testing.T) {
	underline := `{"type":"text","text":"u","marks":[{"type":"underline"}]}`

	result := convert(t, doc(`{"type":"mystery"}`, para(underline)))

	assert.Equal(t, "u\n", result.Markdown)
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, WarningUnknownNode, result.Warnings[0].Type)
	assert.Equal(t, "mystery", result.Warnings[0].NodeType)
	assert.Equal(t, WarningUnknownMark, result.Warnings[1].Type)
	assert.Equal(t, "underline", result.Warnings[1].NodeType)
}

func TestConvert_ForeignResourceLinkIsReported(t *testing.T) {
	result := convert(t, doc(para(txt("see [x](:/deadbeef)"))))

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, WarningUnresolvedReference, result.Warnings[0].Type)
	assert.Contains(t, result.Warnings[0].Message, "deadbeef")
}

func TestConvert_InvalidJSON(t *testing.T) {
	conv := NewConverter(&fakeArchive{}, &fakeStore{}, nil)

	_, err := conv.Convert(context.Background(), "1/1/1", "{not json")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1/1/1")
}
