package main

import (
	"os"

	"github.com/evzone/chargeml/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
