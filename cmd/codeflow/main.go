package main

import "github.com/dpolishuk/codeflow/internal/cli"

func main() {
	cli.Execute()
}
