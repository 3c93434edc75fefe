// internal/sequence/render.go
package sequence

import (
	"strings"

	"github.com/prospectpipe/outreach-backend/internal/model"
)

// Render fills {field} placeholders in step content from prospect fields.
// Empty fields render as <unknown> rather than leaving the placeholder in.
func Render(content string, p *model.Prospect) string {
	fields := map[string]string{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"company":    p.Company,
		"email":      p.Email,
		"phone":      p.Phone,
	}
	out := content
	for k, v := range fields {
		if v == "" {
			v = "<unknown>"
		}
		out = strings.ReplaceAll(out, "{"+k+"}", v)
	}
	return out
}
