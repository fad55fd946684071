package main

import (
	"github.com/webgather/harvester/cmd"
)

func main() {
	cmd.Execute()
}
