package main

import "github.com/worawit-m/lineagent/cmd"

func main() {
	cmd.Execute()
}
