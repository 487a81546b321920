package main

import "github.com/semshift/semshift/cmd"

func main() {
	cmd.Execute()
}
