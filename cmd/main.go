package main

import (
	"log"
	_ "time/tzdata"

	"github.com/victornm/trivia/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("trivia: %v", err)
	}
}
