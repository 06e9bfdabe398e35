package engine

import (
	"strings"

	"promopilot/models"
)

// MergeTags substitutes {{tag}} placeholders with contact fields. Tags
// without a known field are left verbatim so a typo is visible in the
// delivered message instead of silently vanishing.
func MergeTags(template string, contact *models.Contact) string {
	if template == "" {
		return template
	}

	name := strings.TrimSpace(contact.FirstName + " " + contact.LastName)
	replacements := map[string]string{
		"{{firstName}}": contact.FirstName,
		"{{lastName}}":  contact.LastName,
		"{{name}}":      name,
		"{{email}}":     contact.Email,
		"{{phone}}":     contact.Phone,
	}

	result := template
	for tag, value := range replacements {
		result = strings.ReplaceAll(result, tag, value)
	}
	return result
}
