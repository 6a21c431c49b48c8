package main

import "ace/cmd"

func main() {
	cmd.Execute()
}
