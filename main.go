package main

import "declutter/cmd"

func main() {
	cmd.Execute()
}
