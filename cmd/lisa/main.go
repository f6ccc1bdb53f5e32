package main

import "github.com/robert-malhotra/go-inovesa/internal/cli"

func main() {
	cli.Execute()
}
