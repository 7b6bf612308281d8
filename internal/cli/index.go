package cli

import (
	"fmt"

	"github.com/ferropkg/ferrite/pkg/index"
	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command group.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Repository index tooling",
	}

	cmd.AddCommand(newIndexGenerateCmd())

	return cmd
}

func newIndexGenerateCmd() *cobra.Command {
	var (
		sourceDir string
		outputDir string
		baseURL   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a repository from package sources",
		Long: `Generate artifact archives and an index.json from a source tree.
Each subdirectory of --source must contain a manifest.json and a files/
tree with the package payload.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gen := &index.Generator{
				SourceDir: sourceDir,
				OutputDir: outputDir,
				BaseURL:   baseURL,
			}
			idx, err := gen.Generate(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to generate repository: %w", err)
			}
			fmt.Printf("Generated index with %d package(s) in %s\n", len(idx.Packages), outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "", "Directory with package sources (required)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Directory to write archives and index.json into (required)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "URL prefix for artifact references (required)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("base-url")

	return cmd
}
