// Command dashctl drives the datadash staging directory from a terminal:
// fetch Kaggle datasets, list and inspect staged CSV files, clear staging.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/datadash/internal/core"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		var ue *core.UserError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, "✗ Error:", core.FormatUserError(ue.Technical))
		} else {
			fmt.Fprintln(os.Stderr, "✗ Error:", err)
		}
		os.Exit(1)
	}
}
