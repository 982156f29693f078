package todos

import (
	"embed"
	"io/fs"

	"github.com/pthm/hyper/lib/fragment"
)

//go:embed views
var viewFiles embed.FS

// Views returns the embedded view source.
func Views() fragment.Source {
	sub, err := fs.Sub(viewFiles, "views")
	if err != nil {
		panic(err)
	}
	return fragment.FSSource{FS: sub}
}
