package main

import "github.com/bradford-hamilton/chippy8/cmd"

func main() {
	cmd.Execute()
}
