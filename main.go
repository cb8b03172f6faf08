// Command link-health tracks the health of external links found in saved content.
package main

import (
	"os"

	"github.com/jonesrussell/north-cloud/link-health/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
