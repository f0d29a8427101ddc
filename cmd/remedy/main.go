package main

import (
	"github.com/ndquoc/remedy/internal/cli"
)

func main() {
	cli.Execute()
}
