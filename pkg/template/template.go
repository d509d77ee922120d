// Package template renders the flat placeholder syntax used in email
// subjects and bodies. Placeholders form a closed set resolved against the
// subject the automation is acting on.
package template

import (
	"fmt"
	"regexp"

	"github.com/donorpilot/donorpilot/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z]+)\s*\}\}`)

// Render substitutes {{placeholder}} occurrences in the input with values
// from the subject. Unknown placeholders are left verbatim so a typo is
// visible in the rendered output instead of silently disappearing.
func Render(input string, subject *models.Subject) string {
	if subject == nil {
		return input
	}

	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]

		value, known := resolve(name, subject)
		if !known {
			return match
		}

		return value
	})
}

func resolve(name string, subject *models.Subject) (string, bool) {
	switch name {
	case "firstName":
		return subject.FirstName, true
	case "lastName":
		return subject.LastName, true
	case "fullName":
		return subject.FullName(), true
	case "email":
		return subject.Email, true
	case "totalDonations":
		return fmt.Sprintf("%.2f", subject.TotalDonations), true
	default:
		return "", false
	}
}
