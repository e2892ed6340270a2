//go:build !noopencv

package main

import (
	"log/slog"

	"github.com/smazurov/framenode/internal/opencv"
	"github.com/smazurov/framenode/internal/pipeline"
	"github.com/smazurov/framenode/internal/processor"
	"github.com/smazurov/framenode/internal/recording"
	"github.com/smazurov/framenode/internal/source"
)

func registerOpenCV(sources *source.Registry, processors *processor.Registry, logger *slog.Logger) error {
	return opencv.Register(sources, processors, logger)
}

func openCVWriter() (recording.WriterFactory, error) {
	return opencv.NewVideoWriter, nil
}

func newSnapshotter(dir string) (pipeline.Snapshotter, error) {
	s, err := opencv.NewSnapshotter(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}
