package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smazurov/framenode/internal/config"
	"github.com/smazurov/framenode/internal/signals"
)

const defaultSignalDir = "signals"

// CreateSignalCmd creates the signal command, which asks a running pipeline to
// start or stop recording by dropping a marker file into its signal directory.
func CreateSignalCmd() *cobra.Command {
	var dir string
	var pipelineFile string

	cmd := &cobra.Command{
		Use:       "signal start|stop <stream>",
		Short:     "Request a recording start or stop",
		Long:      `Writes a record_start_<N>.signal or record_stop_<N>.signal marker (N = stream index + 1).`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"start", "stop"},
		Run: func(cmd *cobra.Command, args []string) {
			if dir == "" {
				dir = signalDir(pipelineFile)
			}
			if err := runSignal(cmd.OutOrStdout(), dir, args[0], args[1]); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Signal directory (default: from the pipeline file, else \"signals\")")
	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "pipeline.toml", "Pipeline definition file")
	return cmd
}

// signalDir reads the signal directory from the pipeline file when it loads.
func signalDir(pipelineFile string) string {
	def, err := config.LoadPipeline(pipelineFile)
	if err != nil || def.Signals.Dir == "" {
		return defaultSignalDir
	}
	return def.Signals.Dir
}

func runSignal(w io.Writer, dir, action, streamArg string) error {
	stream, err := strconv.Atoi(streamArg)
	if err != nil || stream < 0 {
		return fmt.Errorf("invalid stream index %q", streamArg)
	}

	var marker string
	switch action {
	case "start":
		err = signals.RequestStart(dir, stream)
		marker = signals.StartMarker(stream)
	case "stop":
		err = signals.RequestStop(dir, stream)
		marker = signals.StopMarker(stream)
	default:
		return fmt.Errorf("unknown action %q (want start or stop)", action)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, filepath.Join(dir, marker))
	return nil
}
