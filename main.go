package main

import "github.com/percus-ai/daihen-physical-ai-interfaces/internal/cli"

func main() {
	cli.Execute()
}
