package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// CreateProcessorsCmd creates the processors command.
func CreateProcessorsCmd(registries Registries) *cobra.Command {
	return &cobra.Command{
		Use:   "processors",
		Short: "List available source and processor kinds",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runProcessors(cmd.OutOrStdout(), registries); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
}

func runProcessors(w io.Writer, registries Registries) error {
	sources, processors, err := registries()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sources:    %s\n", strings.Join(sources.Kinds(), ", "))
	fmt.Fprintf(w, "processors: %s\n", strings.Join(processors.Kinds(), ", "))
	return nil
}
