package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Validate CV files and store them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runImport,
}

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export ID",
	Short: "Write a stored CV as JSON or YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored CVs, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "Output format: yaml or json")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")

	rootCmd.AddCommand(importCmd, exportCmd, listCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	// 先全部校验，任何一个文件无效都不写入。
	cvs := make([]resumeFile, 0, len(args))
	for _, path := range args {
		cv, err := loadCV(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		cvs = append(cvs, resumeFile{path: path, cv: cv})
	}

	for _, f := range cvs {
		created, err := store.Create(cmd.Context(), f.cv)
		if err != nil {
			return fmt.Errorf("import %s: %w", f.path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> cv %d\n", f.path, created.ID)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid cv id %q", args[0])
	}
	if exportFormat != "yaml" && exportFormat != "json" {
		return fmt.Errorf("unknown format %q", exportFormat)
	}

	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	cv, err := store.Get(cmd.Context(), uint(id))
	if err != nil {
		return err
	}
	cv.ID = 0

	w, closeOut, err := outputWriter(cmd, exportOut)
	if err != nil {
		return err
	}
	defer closeOut()
	return encodeCV(w, *cv, exportFormat)
}

func runList(cmd *cobra.Command, _ []string) error {
	store, closeFn, err := openStore()
	if err != nil {
		return err
	}
	defer closeFn()

	items, total, err := store.List(cmd.Context(), 0, 100)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tRENDER\tUPDATED")
	for _, s := range items {
		status := s.RenderStatus
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Email, status, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total > int64(len(items)) {
		fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d shown)\n", len(items), total)
	}
	return nil
}
