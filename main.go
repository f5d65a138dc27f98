package main

import "github.com/jobradar/harvester/cmd"

func main() {
	cmd.Execute()
}
