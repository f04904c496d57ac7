package main

import "vestingdapp/internal/cli"

func main() {
	cli.Execute()
}
