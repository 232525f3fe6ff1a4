// Package main is the entry point for the cmkagent service.
package main

import (
	"os"

	"cmkagent/internal/app"
)

func main() {
	os.Exit(app.Main(os.Args[1:]))
}
