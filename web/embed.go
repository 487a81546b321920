// Package web embeds the built migration UI served by the API server.
package web

import "embed"

// DistFS contains the built web app files.
// The dist/ directory is populated by `npm run build` in the web/ directory.
//
//go:embed all:dist
var DistFS embed.FS
