package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cvstudio/internal/resume"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check CV files against the validation rules",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		_, err := loadCV(path, cmd.InOrStdin())
		if err == nil {
			fmt.Fprintf(out, "ok      %s\n", path)
			continue
		}
		failed++
		var verr *resume.ValidationError
		if !errors.As(err, &verr) {
			fmt.Fprintf(out, "error   %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "invalid %s\n", path)
		for _, f := range verr.Fields {
			if f.Param != "" {
				fmt.Fprintf(out, "  %s: %s=%s\n", f.Field, f.Rule, f.Param)
			} else {
				fmt.Fprintf(out, "  %s: %s\n", f.Field, f.Rule)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}
