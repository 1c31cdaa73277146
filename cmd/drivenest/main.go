// Package main is the single-binary entrypoint for Drive Nest.
package main

import "github.com/Sarbeswarpanda04/Drive-Nest/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
