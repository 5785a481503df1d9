package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/diwan-editor/docsearch/internal/cli"
)

func main() {
	if err := cli.NewCmdRoot(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
