package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cvstudio/internal/resume"
)

type resumeFile struct {
	path string
	cv   resume.CV
}

func outputWriter(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
