package main

import "paperqa/internal/cli"

func main() {
	cli.Execute()
}
