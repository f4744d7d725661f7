package main

import (
	"log"
	"os"

	"scribe/cmd/internal/app"
)

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
