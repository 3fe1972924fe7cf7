package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/blackwell-systems/mons/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		var exitErr *app.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(app.ExitCode(err))
	}
}
