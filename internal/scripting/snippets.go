package scripting

import (
	"regexp"
	"strings"

	"github.com/droverdev/drover/internal/models"
	"gorm.io/gorm"
)

var snippetPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// ReplaceSnippets splices stored snippet code into a script body wherever
// a {{name}} placeholder names an existing snippet. Unknown placeholders
// are left untouched.
func ReplaceSnippets(db *gorm.DB, code string) string {
	matches := snippetPattern.FindAllStringSubmatch(code, -1)
	if len(matches) == 0 {
		return code
	}

	seen := make(map[string]bool)
	for _, m := range matches {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true

		var snippet models.ScriptSnippet
		if err := db.Where("name = ?", name).First(&snippet).Error; err != nil {
			continue
		}
		code = strings.ReplaceAll(code, m[0], snippet.Code)
	}
	return code
}
