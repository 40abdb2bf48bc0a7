package main

import "github.com/asgardeo/mcp-launcher/cmd/mcp-launcher/cmd"

func main() {
	cmd.Execute()
}
