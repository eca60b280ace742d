// Command klsstress exercises thread slots and cross-thread arena frees
// under load and verifies that nothing leaks.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		slog.Error("klsstress failed", "error", err)
		os.Exit(1)
	}
}
