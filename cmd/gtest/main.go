package main

import (
	"log"
	"os"

	"github.com/larryli/PuTTY-sub000/internal/gtest"
)

func main() {
	log.SetFlags(0)
	if err := gtest.NewRootCmd().Execute(); err != nil {
		log.Printf("\x1b[91m[ERROR]\x1b[0m %v\n", err)
		os.Exit(1)
	}
}
