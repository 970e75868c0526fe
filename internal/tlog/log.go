// Package tlog provides the package-scoped logger used across timg-sub000.
//
// It calls the standard library's log package directly, the same way
// cmd/texelation/main.go does, but routes through a single *log.Logger
// so callers (tests, --verbose-logs style flags) can redirect output
// without touching a process-wide global.
package tlog

import (
	"io"
	"log"
	"os"
)

var std = log.New(os.Stderr, "", 0)

// SetOutput redirects all future log output, e.g. to io.Discard in tests
// or a file when running as a daemon.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func Printf(format string, args ...interface{}) {
	std.Printf(format, args...)
}

func Println(args ...interface{}) {
	std.Println(args...)
}
