package footer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderIncludesBrandAndLinks(t *testing.T) {
	markup, err := Render(Config{
		ElementID:  "page-footer",
		Class:      "attribution",
		PrefixText: "Collected with",
		BrandLabel: "Kudos",
		BrandURL:   "https://kudos.example",
		Links: []Link{
			{Label: "Privacy", URL: "https://kudos.example/privacy"},
			{Label: "", URL: "https://ignored.example"},
		},
	})
	require.NoError(t, err)

	rendered := string(markup)
	require.Contains(t, rendered, `id="page-footer"`)
	require.Contains(t, rendered, `class="attribution"`)
	require.Contains(t, rendered, "Collected with")
	require.Contains(t, rendered, `href="https://kudos.example"`)
	require.Contains(t, rendered, ">Privacy</a>")
	require.NotContains(t, rendered, "ignored.example")
}

func TestRenderEscapesValues(t *testing.T) {
	markup, err := Render(Config{BrandLabel: "<b>Kudos</b>", BrandURL: "javascript:alert(1)"})
	require.NoError(t, err)

	rendered := string(markup)
	require.False(t, strings.Contains(rendered, "<b>"))
	require.NotContains(t, rendered, "javascript:alert")
	require.Contains(t, rendered, "#ZgotmplZ")
}

func TestRenderRequiresBrand(t *testing.T) {
	_, err := Render(Config{BrandLabel: "  "})
	require.ErrorIs(t, err, ErrMissingBrand)
}
