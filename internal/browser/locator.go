// internal/browser/locator.go
package browser

import (
	"fmt"
	"strings"
)

// Strategy is how a Locator's value is interpreted.
type Strategy int

const (
	StrategyXPath Strategy = iota
	StrategyCSS
	StrategyText
)

func (s Strategy) String() string {
	switch s {
	case StrategyXPath:
		return "xpath"
	case StrategyCSS:
		return "css"
	case StrategyText:
		return "text"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Locator identifies one element at a point in time. Structural locators are
// not stable across re-renders, so callers usually supply several candidates.
type Locator struct {
	Strategy Strategy
	Value    string
}

// XPath builds an XPath locator, normalizing document-relative paths
// such as "html/body/div" to absolute form.
func XPath(path string) Locator {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "html/") || path == "html" {
		path = "/" + path
	}
	return Locator{Strategy: StrategyXPath, Value: path}
}

func CSS(selector string) Locator {
	return Locator{Strategy: StrategyCSS, Value: strings.TrimSpace(selector)}
}

func Text(fragment string) Locator {
	return Locator{Strategy: StrategyText, Value: fragment}
}

// ParseLocator accepts the Playwright-style "xpath=", "css=" and "text=" prefixes.
// Unprefixed values starting with "/", "(" or "html/" are XPath, anything else is CSS.
func ParseLocator(raw string) (Locator, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Locator{}, fmt.Errorf("empty locator")
	}

	if prefix, value, ok := strings.Cut(trimmed, "="); ok {
		switch strings.ToLower(prefix) {
		case "xpath":
			if strings.TrimSpace(value) == "" {
				return Locator{}, fmt.Errorf("locator %q has an empty xpath", raw)
			}
			return XPath(value), nil
		case "css":
			if strings.TrimSpace(value) == "" {
				return Locator{}, fmt.Errorf("locator %q has an empty css selector", raw)
			}
			return CSS(value), nil
		case "text":
			if value == "" {
				return Locator{}, fmt.Errorf("locator %q has an empty text fragment", raw)
			}
			return Text(value), nil
		}
	}

	if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "(") || strings.HasPrefix(trimmed, "html/") {
		return XPath(trimmed), nil
	}
	return CSS(trimmed), nil
}

// MustParseLocator is ParseLocator for literals known to be valid.
func MustParseLocator(raw string) Locator {
	loc, err := ParseLocator(raw)
	if err != nil {
		panic(err)
	}
	return loc
}

// String returns the prefixed form understood by ParseLocator.
func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Value
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool {
	return l.Value == ""
}

// AsXPath expresses the locator as an XPath expression. CSS locators cannot be
// converted and return ok=false.
func (l Locator) AsXPath() (string, bool) {
	switch l.Strategy {
	case StrategyXPath:
		return l.Value, true
	case StrategyText:
		return fmt.Sprintf("//*[text()[contains(normalize-space(.), %s)]]", xpathLiteral(strings.TrimSpace(l.Value))), true
	default:
		return "", false
	}
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression, which has no
// escape sequences, by falling back to concat() when both quote kinds appear.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		if p != "" {
			quoted = append(quoted, `"`+p+`"`)
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}
