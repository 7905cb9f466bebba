package main

import (
	"os"

	"github.com/roach88/cohort/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
