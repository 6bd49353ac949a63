package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/lehigh-university-libraries/paper2blog/internal/pdfdoc"
	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	var (
		output   string
		language string
	)

	cmd := &cobra.Command{
		Use:   "convert <pdf|url>",
		Short: "Convert one paper into a blog post",
		Long: `Converts a local PDF or a web page into a blog post and writes the
markdown to stdout or to --output. The post, its HTML rendering and a YAML
sidecar are also saved under DATA_DIR/saved_md.`,
		Example: `  # Convert a local paper
  paper2blog convert attention.pdf

  # Write a Chinese post to a file
  paper2blog convert https://example.com/paper --language zh --output post.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			if language == "" {
				language = a.cfg.TargetLanguage
			}

			src, err := sourceFromArg(args[0], language)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if a.cfg.RequestTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.RequestTimeout)
				defer cancel()
			}

			resp := a.pipeline.Convert(ctx, src)
			if resp.Error != "" {
				return fmt.Errorf("conversion failed: %s", resp.Error)
			}

			if output == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), resp.Content)
				return err
			}
			if err := os.WriteFile(output, []byte(resp.Content+"\n"), 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			slog.Info("Blog post written", "path", output, "title", resp.Title, "images", len(resp.Images))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write markdown to this file instead of stdout")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Output language: en or zh (defaults to TARGET_LANGUAGE)")

	return cmd
}

// sourceFromArg turns a command-line argument into a pipeline source,
// validating local PDFs up front.
func sourceFromArg(arg, language string) (blog.Source, error) {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return blog.Source{URL: arg, Language: language}, nil
	}

	path, err := filepath.Abs(arg)
	if err != nil {
		return blog.Source{}, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := pdfdoc.Validate(path)
	if err != nil {
		return blog.Source{}, fmt.Errorf("invalid document %s: %w", arg, err)
	}
	slog.Debug("Validated document", "path", path, "pages", info.Pages)

	return blog.Source{Path: path, OriginalFilename: filepath.Base(path), Language: language}, nil
}
