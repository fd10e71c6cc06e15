package main

import "stampable/cmd/cli"

func main() {
	cli.Execute()
}
