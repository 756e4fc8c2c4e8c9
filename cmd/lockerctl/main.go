package main

import (
	"github.com/robotalks/multilocker/pkg/cli/sh"
	"github.com/robotalks/multilocker/pkg/env"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
