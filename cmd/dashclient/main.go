package main

import "github.com/vietddude/dashclient/internal/cli"

func main() {
	cli.Execute()
}
