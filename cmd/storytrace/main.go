// storytrace demo runner - traced story generation against Gemini
package main

import (
	"os"

	"github.com/storytrace/storytrace-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
