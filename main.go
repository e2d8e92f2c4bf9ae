package main

import "tmsops/cmd"

func main() {
	cmd.Execute()
}
