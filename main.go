package main

import "github.com/KaramelBytes/prepkit-cli/cmd"

func main() {
	cmd.Execute()
}
