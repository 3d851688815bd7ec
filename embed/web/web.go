package web

import (
	"embed"
	"io/fs"
)

//go:embed assets
var files embed.FS

// Assets holds the static board page served at the web root.
var Assets, _ = fs.Sub(files, "assets")
