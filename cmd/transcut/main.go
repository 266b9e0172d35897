package main

import "github.com/forPelevin/transcut/internal/cli"

func main() {
	cli.Main()
}
