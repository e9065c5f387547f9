package main

import (
	"os"

	"github.com/guardpost/guardpost/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
