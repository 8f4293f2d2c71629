// maintenance runs periodic database cleanup for the shop backend.
//
//	go run ./cmd/maintenance run
//	go run ./cmd/maintenance purge-refresh-tokens --grace 72h
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
