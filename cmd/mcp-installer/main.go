package main

import "github.com/asgardeo/mcp-launcher/cmd/mcp-installer/cmd"

func main() {
	cmd.Execute()
}
