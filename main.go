package main

import (
	"os"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
