package main

import "ssh-helper/cmd"

func main() {
	cmd.Execute()
}
