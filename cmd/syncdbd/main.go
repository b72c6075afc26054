// Command syncdbd runs a syncdb replica as a standalone daemon: the
// HTTP/WebSocket surface, the replication loop, and the storage and
// transport backends selected by configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "syncdbd",
		Short: "syncdb replication daemon",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML/JSON/TOML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
