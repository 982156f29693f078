package hyper

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Flash levels for toast notifications.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashWarning = "warning"
	FlashInfo    = "info"
)

// ToastContainerID is the id of the element flashes are appended to.
const ToastContainerID = "toasts"

// Flash represents a one-time notification message.
//
// Flashes are appended to the #toasts container with a patch-elements event
// in append mode. Each toast removes itself after a few seconds using a
// Datastar init expression, so no client extension is needed.
type Flash struct {
	Level   string // success, error, warning, info
	Message string
}

// RenderFlash renders one toast element.
func RenderFlash(f Flash) string {
	var sb strings.Builder
	sb.WriteString(`<div class="toast toast-`)
	sb.WriteString(html.EscapeString(f.Level))
	sb.WriteString(`" role="status" data-init="setTimeout(() => el.remove(), 3000)">`)
	sb.WriteString(html.EscapeString(f.Message))
	sb.WriteString(`</div>`)
	return sb.String()
}

// RenderFlashes renders several toasts in order.
func RenderFlashes(flashes []Flash) string {
	var sb strings.Builder
	for _, f := range flashes {
		sb.WriteString(RenderFlash(f))
	}
	return sb.String()
}

// ToastContainer returns a templ component for the toast container.
//
// Add this to your layout template (typically near the end of <body>):
//
//	@hyper.ToastContainer()
func ToastContainer() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<div id="`+ToastContainerID+`" class="toast-container"></div>`)
		return err
	})
}
