package main

import (
	"github.com/praetorian-inc/ocigraph/cmd"
)

func main() {
	cmd.Execute()
}
