// Package web holds the page template and stylesheet compiled into the server.
package web

import "embed"

// TemplatesFS holds index.html and the chart partial it defines.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
