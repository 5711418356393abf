package main

import "shapesync/cmd"

func main() {
	cmd.Execute()
}
