package main

import (
	"github.com/sw33tLie/callerid/cmd"
)

func main() {
	cmd.Execute()
}
