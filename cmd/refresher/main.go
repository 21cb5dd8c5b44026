package main

import "github.com/ogulcanaydogan/campaign-refresh/internal/cli"

func main() {
	cli.Execute()
}
