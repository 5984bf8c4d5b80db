package main

import (
	"os"

	"enpole.fr/paddock/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
