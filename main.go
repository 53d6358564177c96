package main

import "reminder-cli/cmd"

func main() {
	cmd.Execute()
}
