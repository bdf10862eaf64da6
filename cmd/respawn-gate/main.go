package main

import "github.com/Respawn-Gate/Respawngate/cmd/respawn-gate/cmd"

func main() {
	cmd.Execute()
}
