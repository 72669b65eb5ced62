package main

import (
	"context"
	"fmt"
	"os"

	"github.com/xaionaro-go/screensnap/cmd/screensnap/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
