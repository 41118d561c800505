package main

import "github.com/Builder-Lawyers/store-builder/cmd"

func main() {
	cmd.Execute()
}
