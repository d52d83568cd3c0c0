// Package assets embeds the page templates and the files served under /static/.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed templates dist
var embedded embed.FS

var (
	// TemplateFS holds base.html, one file per page and partials/.
	TemplateFS = mustSub("templates")
	// DistFS is served as is.
	DistFS = mustSub("dist")
)

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		panic("assets: " + err.Error())
	}
	return sub
}
