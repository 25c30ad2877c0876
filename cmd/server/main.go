// Command server はtaskdeck APIサーバーのエントリーポイント。
// サブコマンド: serve（既定）、migrate、healthcheck
package main

import (
	"fmt"
	"os"

	"github.com/takumi/taskdeck/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
