//go:build tools

// Package tools pins the module versions of build-time-only tools
// (coverage reporting, cross-compilation, linting) so `go mod tidy`
// has a real import site for them instead of leaving them as
// unreferenced indirect requires. None of this is ever reachable from
// the runtime build; the tools build tag keeps it out of normal
// compilation entirely.
package tools

import (
	_ "github.com/axw/gocov"
	_ "github.com/matm/gocov-html"
	_ "github.com/mitchellh/gox"
	_ "golang.org/x/lint"
)
