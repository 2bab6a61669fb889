package main

import (
	"github.com/tansive/peerstore/internal/cli"
)

func main() {
	cli.Execute()
}
