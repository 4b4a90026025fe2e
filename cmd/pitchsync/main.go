package main

import "pitchsync/internal/cli"

func main() {
	cli.Execute()
}
