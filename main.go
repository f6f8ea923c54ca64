package main

import (
	"os"

	"github.com/GoStudio-Admin/GoStudio-Admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
