package main

import "github.com/nordicstacks/eventpipeline/cmd/eventpipeline/cmd"

func main() {
	cmd.Execute()
}
