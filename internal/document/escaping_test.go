package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeBackslashes(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		want        string
		substituted bool
		collision   bool
	}{
		{name: "no backslashes", raw: `{"a":"b"}`, want: `{"a":"b"}`},
		{name: "double backslash", raw: `a\\b`, want: "a~#~b", substituted: true},
		{name: "single backslash untouched", raw: `a\"b`, want: `a\"b`},
		{name: "existing sentinel", raw: "a~#~b", want: "a~#~b", collision: true},
		{name: "sentinel and backslash", raw: `~#~\\`, want: "~#~~#~", substituted: true, collision: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, substituted, collision := EscapeBackslashes(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.substituted, substituted)
			assert.Equal(t, tt.collision, collision)
		})
	}
}

func TestUnescapeContent_QuotesBeforeSentinel(t *testing.T) {
	assert.Equal(t, `{"text":"a\"}`, UnescapeContent(`{\"text\":\"a~#~\"}`))
}

func TestUnescapeBackslashes(t *testing.T) {
	assert.Equal(t, `Tag\One`, UnescapeBackslashes("Tag~#~One"))
}

func TestParse_SkipsNullNodesAndReadsAttributes(t *testing.T) {
	root, err := Parse(`{"content":[null,{"type":"heading","attrs":{"level":3},"content":[{"type":"text","text":"h"}]},{"type":"weird"}]}`)

	assert.NoError(t, err)
	if assert.Len(t, root.Children, 2) {
		assert.Equal(t, KindHeading, root.Children[0].Kind)
		assert.Equal(t, 3, root.Children[0].Level)
		assert.Equal(t, KindUnknown, root.Children[1].Kind)
		assert.Equal(t, "weird", root.Children[1].Type)
	}
	assert.Equal(t, KindDoc, root.Kind)
}

func TestResourceLinks(t *testing.T) {
	ids := ResourceLinks("![a](:/x) [b](:/y) [c](https://z)\n")

	assert.Equal(t, []string{"x", "y"}, ids)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "check_list_item", KindCheckListItem.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, KindHorizontalRule, ParseKind("horizontal_rule"))
	assert.Equal(t, MarkUnknown, ParseMarkKind("underline"))
}
