package main

import (
	"os"

	"github.com/jwitts1998/social-graph-v2-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
