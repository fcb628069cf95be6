package main

import (
	"os"

	"github.com/Captain-Sangam/KubePeek/cmd"
)

func main() {
	if err := cmd.NewKubePeekCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
