package main

import "clausewise/cmd/clausectl/cmd"

func main() {
	cmd.Execute()
}
