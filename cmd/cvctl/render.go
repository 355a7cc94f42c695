package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cvstudio/internal/pdf"
)

var (
	renderOut         string
	renderPhoto       string
	renderParams      pdf.Params
	renderChromiumBin string
	renderTimeout     time.Duration
	renderJobs        int
	renderFont        string
)

var renderCmd = &cobra.Command{
	Use:   "render FILE...",
	Short: "Render CV files to PDF",
	Long: "Renders each CV file to PDF. With one input --out names the PDF; with several it names a directory " +
		"that receives one CV_{name}.pdf per input.",
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOut, "out", "o", "", "Output PDF file, or directory when rendering several files")
	f.StringVar(&renderPhoto, "photo", "", "JPEG, PNG or GIF photo to embed")
	f.StringVar(&renderParams.Variant, "variant", "two-column", "Layout variant: two-column or single-column")
	f.StringVar(&renderParams.PageSize, "page-size", "A4", "Page size: A4, A5, Letter or Legal")
	f.StringVar(&renderParams.Locale, "locale", "en", "Locale for headings and dates")
	f.StringVar(&renderParams.Backend, "backend", pdf.BackendFPDF, "Backend: fpdf, rod or chromedp")
	f.Float64Var(&renderParams.MarginMM, "margin", 20, "Page margin in millimetres")
	f.StringVar(&renderChromiumBin, "chromium-bin", "", "Chromium binary for the browser backends")
	f.DurationVar(&renderTimeout, "timeout", 60*time.Second, "Timeout of one browser render")
	f.IntVarP(&renderJobs, "jobs", "j", 2, "Files rendered concurrently")
	f.StringVar(&renderFont, "font", "", "TrueType font tried before the built-in one by the fpdf backend (e.g. a CJK font)")

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	opts, err := renderParams.Options()
	if err != nil {
		return err
	}
	if renderPhoto != "" {
		opts.Photo, err = os.ReadFile(renderPhoto)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}
	}
	if renderJobs <= 0 {
		renderJobs = 1
	}

	native := pdf.NewFPDFBackend()
	if renderFont != "" {
		fam, err := pdf.LoadFontFamily("cli", renderFont, "", "")
		if err != nil {
			return err
		}
		native.Fonts = []*pdf.FontFamily{fam}
	}

	renderer := pdf.NewRenderer(newLogger(),
		pdf.WithBackend(native),
		pdf.WithBackend(pdf.NewRodBackend(renderChromiumBin, renderTimeout)),
		pdf.WithBackend(pdf.NewChromedpBackend(renderChromiumBin, renderTimeout)),
		pdf.WithConcurrency(renderJobs),
	)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(renderJobs)
	for _, path := range args {
		g.Go(func() error {
			target, err := renderFile(ctx, renderer, path, opts, len(args) > 1)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", path, target)
			return nil
		})
	}
	return g.Wait()
}

func renderFile(ctx context.Context, renderer *pdf.Renderer, path string, opts pdf.Options, batch bool) (string, error) {
	cv, err := loadCV(path, os.Stdin)
	if err != nil {
		return "", err
	}
	result, err := renderer.Render(ctx, cv, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning %s: %s\n", path, w.Message)
	}

	target := outputPath(renderOut, path, result.Filename, batch)
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(target, result.PDF, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	return target, nil
}

// outputPath 决定输出文件名：单个输入时 out 即文件名，批量时 out 为目录。
// 批量模式下以输入文件名区分，避免同名简历互相覆盖。
func outputPath(out, input, filename string, batch bool) string {
	if !batch {
		if out == "" {
			return filename
		}
		return out
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(out, base+"_"+filename)
}
