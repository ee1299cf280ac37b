// Package export renders the registration list as a plain-text document.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/exambot/internal/registration"
)

// Header is the first line of every export.
const Header = "СПИСОК ЗАРЕГИСТРИРОВАННЫХ УЧАСТНИКОВ"

// MIME is the content type of the rendered document.
const MIME = "text/plain; charset=utf-8"

// Text renders one "fullName | phone | попытка N" line per registration
// under the header and a blank line.
func Text(regs []registration.Registration) string {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n\n")
	for i, r := range regs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s | %s | попытка %d", r.FullName, r.Phone, r.Attempt)
	}
	return b.String()
}

// FileName returns registrations_<unix millis>.txt.
func FileName(now time.Time) string {
	return fmt.Sprintf("registrations_%d.txt", now.UnixMilli())
}
