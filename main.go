package main

import (
	"log"

	"postpipe-connector/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
