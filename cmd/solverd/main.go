package main

import "solverd/internal/cli"

func main() {
	cli.Execute()
}
