package main

import "github.com/agentic-research/sdeconv/cmd"

func main() {
	cmd.Execute()
}
