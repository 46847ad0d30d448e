// Package web embeds the browser chat client.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html
var indexHTML []byte

//go:embed static/*
var staticFS embed.FS

// IndexHTML returns the chat page.
func IndexHTML() []byte {
	return indexHTML
}

// Static exposes the assets served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
