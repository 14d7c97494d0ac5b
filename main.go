package main

import (
	"os"

	"github.com/caltech-netlab/gym-acnportal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
