package main

import (
	"os"

	"github.com/remotekit/sshkit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
