package main

import "github.com/chatscopehq/chatscope/internal/cli"

func main() {
	cli.Execute()
}
