package main

import (
	"fmt"
	"log"
	"os"
)

// VERSION is overridden at build time via -ldflags
var VERSION = "0.1.0"

func main() {
	// Setup logging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := newRootCmd(VERSION).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
