package main

import (
	"go.brendoncarroll.net/star"

	"ufork.dev/uscheme/scheme/spcmd"
)

func main() {
	star.Main(spcmd.Root())
}
