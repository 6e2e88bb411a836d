package main

import "beltche-mcp/cmd"

// version is set during build with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
