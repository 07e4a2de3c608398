package main

import "timemachine/cmd"

func main() {
	cmd.Execute()
}
