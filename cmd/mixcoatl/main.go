package main

import "github.com/snyder18/mixcoatl/cmd/mixcoatl/cmd"

func main() {
	cmd.Execute()
}
