// internal/browser/locator_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Locator
	}{
		{"document relative xpath", "html/body/div/div/div[1]/div[2]/button", Locator{StrategyXPath, "/html/body/div/div/div[1]/div[2]/button"}},
		{"absolute xpath", "/html/body/div[1]", Locator{StrategyXPath, "/html/body/div[1]"}},
		{"grouped xpath", "(//button)[2]", Locator{StrategyXPath, "(//button)[2]"}},
		{"prefixed xpath", "xpath=html/body/div", Locator{StrategyXPath, "/html/body/div"}},
		{"prefixed css", "css=button.primary", Locator{StrategyCSS, "button.primary"}},
		{"bare css", "#start", Locator{StrategyCSS, "#start"}},
		{"css attribute with equals", "button[data-id=book]", Locator{StrategyCSS, "button[data-id=book]"}},
		{"text", "text=Book Room", Locator{StrategyText, "Book Room"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocator(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, loc)
		})
	}

	t.Run("should reject empty values", func(t *testing.T) {
		for _, raw := range []string{"", "   ", "xpath=", "css= ", "text="} {
			_, err := ParseLocator(raw)
			assert.Error(t, err, raw)
		}
	})

	t.Run("should round trip through String", func(t *testing.T) {
		loc := XPath("html/body/div")
		again, err := ParseLocator(loc.String())
		require.NoError(t, err)
		assert.Equal(t, loc, again)
	})

	t.Run("MustParseLocator panics on invalid input", func(t *testing.T) {
		assert.Panics(t, func() { MustParseLocator("") })
	})
}

func TestLocatorAsXPath(t *testing.T) {
	t.Run("xpath is returned unchanged", func(t *testing.T) {
		xp, ok := XPath("/html/body").AsXPath()
		require.True(t, ok)
		assert.Equal(t, "/html/body", xp)
	})

	t.Run("text becomes a contains query", func(t *testing.T) {
		xp, ok := Text("Book Room").AsXPath()
		require.True(t, ok)
		assert.Equal(t, `//*[text()[contains(normalize-space(.), "Book Room")]]`, xp)
	})

	t.Run("css cannot be expressed", func(t *testing.T) {
		_, ok := CSS("button").AsXPath()
		assert.False(t, ok)
	})
}

func TestXPathLiteral(t *testing.T) {
	assert.Equal(t, `"plain"`, xpathLiteral("plain"))
	assert.Equal(t, `'say "hi"'`, xpathLiteral(`say "hi"`))
	assert.Equal(t, `concat("it's ", '"', "quoted", '"')`, xpathLiteral(`it's "quoted"`))
}
