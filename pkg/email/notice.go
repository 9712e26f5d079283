package email

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var noticeTemplate = template.Must(template.ParseFS(templateFS, "templates/security_notice.html"))

// Notice is the data rendered into a security notification.
type Notice struct {
	Heading    string
	Body       string
	OccurredAt time.Time
	Support    string
}

// RenderNotice renders n into the security notice layout.
func RenderNotice(n Notice) (string, error) {
	var buf bytes.Buffer
	if err := noticeTemplate.Execute(&buf, n); err != nil {
		return "", errors.Join(ErrFailedToRender, err)
	}
	return buf.String(), nil
}
