package main

import (
	"os"

	luciddcmder "github.com/lucidjournal/lucidd/cmd/lucidd"
)

func main() {
	cmd := luciddcmder.NewLuciddCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
