package main

import "github.com/funvibe/dvi/pkg/cli"

func main() {
	cli.Run()
}
