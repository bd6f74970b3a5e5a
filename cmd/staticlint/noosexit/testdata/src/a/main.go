package main

import (
	"os"
	system "os"
)

func shutdown(code int) {
	os.Exit(code)
}

func main() {
	defer shutdown(0)

	if len(os.Args) > 3 {
		os.Exit(2) // want "avoid using os.Exit in main.main"
	}

	func() {
		system.Exit(1) // want "avoid using os.Exit in main.main"
	}()
}
