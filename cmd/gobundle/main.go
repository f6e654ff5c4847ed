package main

import "github.com/gobundle/gobundle/cmd/gobundle/cmd"

func main() {
	cmd.Execute()
}
