// Command mateauth serves the authentication and account HTTP API.
package main

import (
	"log"

	"github.com/mateforge/mateauth/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
