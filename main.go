package main

import "github.com/mselser95/polymarket-edge/cmd"

func main() {
	cmd.Execute()
}
