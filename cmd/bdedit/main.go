package main

import (
	"os"

	"github.com/fancypantalons/bdedit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
