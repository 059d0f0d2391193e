// Package web carries the dashboard front end: html/template pages and
// htmx partials under templates/, stylesheet and behavior under
// static/. Everything ships inside the binary so a deploy is one file
// plus the data directory.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS

//go:embed static/*
var Static embed.FS
