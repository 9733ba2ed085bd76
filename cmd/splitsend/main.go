package main

import (
	"os"

	"github.com/splitsend/splitsend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
