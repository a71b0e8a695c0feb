package main

import "lanekit/cmd"

func main() {
	cmd.Execute()
}
