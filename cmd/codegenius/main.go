package main

import "github.com/mvp-joe/codegenius/internal/cli"

func main() {
	cli.Execute()
}
