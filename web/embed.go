// Package web embeds the comparison page served at /. The page is a
// single index.html that calls the /api routes; with ?client=true it is
// locked to the parser named in the link.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the embedded assets rooted at dist, so files are opened
// as "index.html" rather than "dist/index.html".
func DistFS() (fs.FS, error) {
	return fs.Sub(distFS, "dist")
}

// Index returns the comparison page.
func Index() ([]byte, error) {
	return distFS.ReadFile("dist/index.html")
}
