// Package cmd holds the framenode subcommands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/framenode/internal/config"
	"github.com/smazurov/framenode/internal/processor"
	"github.com/smazurov/framenode/internal/source"
)

// Registries builds the source and processor registries of this binary.
type Registries func() (*source.Registry, *processor.Registry, error)

// CreateValidateCmd creates the validate command.
func CreateValidateCmd(registries Registries) *cobra.Command {
	var pipelineFile string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline definition",
		Long: `Loads the pipeline definition, checks every required key and value, verifies that ` +
			`each source and processor kind is available in this build, and prints the stream table.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runValidate(cmd.OutOrStdout(), pipelineFile, registries); err != nil {
				fmt.Fprintf(os.Stderr, "invalid pipeline %s: %v\n", pipelineFile, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "pipeline.toml", "Pipeline definition file")
	return cmd
}

func runValidate(w io.Writer, path string, registries Registries) error {
	def, err := config.LoadPipeline(path)
	if err != nil {
		return err
	}
	sources, processors, err := registries()
	if err != nil {
		return err
	}
	if err := def.CheckKinds(sources.Has, processors.Has); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSOURCE\tURI\tSIZE\tFPS\tPROCESSOR")
	for _, s := range def.Streams {
		proc := s.Processor
		if proc == "" {
			proc = "-"
		}
		uri := s.SourceURI
		if uri == "" {
			uri = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%g\t%s\n", s.Index, s.SourceKind, uri, s.Width, s.Height, s.FPS, proc)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	st := def.Settings
	fmt.Fprintf(w, "\nqueue_capacity=%d miss_threshold=%d miss_backoff=%s tick_interval=%s join_timeout=%s\n",
		st.QueueCapacity, st.MissThreshold, st.MissBackoff, st.TickInterval, st.JoinTimeout)
	fmt.Fprintf(w, "recording: dir=%s writer=%s codec=%s ext=%s\n",
		def.Recording.Dir, def.Recording.Writer, def.Recording.Codec, def.Recording.Extension)
	fmt.Fprintf(w, "signals: dir=%s watch=%t\n", def.Signals.Dir, def.Signals.Watch)
	return nil
}
