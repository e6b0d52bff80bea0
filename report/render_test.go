package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderText_HeadingAndBold(t *testing.T) {
	html, err := RenderText("# 結論\n**大吉**", Screen)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(html, "<h3"))
	assert.Contains(t, html, `<h3 class="rd-heading">結論</h3>`)
	assert.Contains(t, html, `<p class="rd-p"><strong class="rd-strong">大吉</strong></p>`)
}

func TestRender_GroupsConsecutiveListItems(t *testing.T) {
	html, err := RenderText("- 一\n- **二**\n段落\n* 三", Screen)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(html, "<ul"))
	assert.Equal(t, 3, strings.Count(html, "<li"))
	assert.Contains(t, html, `<li class="rd-item"><strong class="rd-strong">二</strong></li>`)
}

func TestRender_ExportVariantStyles(t *testing.T) {
	html, err := RenderText("# 一\n\n# 二", Export)
	require.NoError(t, err)

	assert.Contains(t, html, `<h3 class="ex-heading ex-first">一</h3>`)
	assert.Contains(t, html, `<h3 class="ex-heading">二</h3>`)
	assert.Contains(t, html, `<p class="ex-spacer"></p>`)
	assert.NotContains(t, html, "rd-")
}

func TestRender_EscapesHTML(t *testing.T) {
	html, err := RenderText("<script>alert(1)</script>", Screen)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestParseVariant(t *testing.T) {
	assert.Equal(t, Export, ParseVariant("export"))
	assert.Equal(t, Export, ParseVariant("pdf"))
	assert.Equal(t, Screen, ParseVariant(""))
}
