// Package main is the entry point for the ragdoll CLI tool.
package main

import (
	"github.com/zolll23/ragdoll/internal/cmd"
)

func main() {
	cmd.Execute()
}
