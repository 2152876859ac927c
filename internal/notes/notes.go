// Package notes renders the project's free-text description for the
// terminal. Descriptions are markdown.
package notes

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Render returns the terminal rendering of the description. An empty
// description yields a short placeholder instead of an error so `show notes`
// is always safe to call.
func Render(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "The configuration doesn't contain notes.\n", nil
	}
	return glamour.Render(description, "dark")
}
