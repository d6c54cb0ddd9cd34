package main

import "github.com/KaramelBytes/edaprompt-cli/cmd"

func main() {
	cmd.Execute()
}
