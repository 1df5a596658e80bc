// Package scenarios embeds the built-in kiosk check suite.
package scenarios

import (
	"embed"

	"github.com/Techayguy01/KIOSK-FRONTEND-V1/internal/scenario"
)

//go:embed kiosk/*.yaml
var kioskFS embed.FS

// Builtin returns the kiosk suite in ID order.
func Builtin() ([]*scenario.Scenario, error) {
	return scenario.LoadFS(kioskFS, "kiosk")
}
