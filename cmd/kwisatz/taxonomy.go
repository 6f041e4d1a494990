package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/kwisatz/internal/cli"
	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/taxonomy"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Inspect or initialize the category taxonomy",
	}

	cmd.AddCommand(showTaxonomyCmd())
	cmd.AddCommand(initTaxonomyCmd())
	return cmd
}

func showTaxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List the active categories and their keywords",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			tax, err := loadTaxonomy(settings)
			if err != nil {
				return common.NewUserError("failed to load taxonomy", err)
			}

			source := "built-in"
			if settings.TaxonomyPath != "" {
				source = settings.TaxonomyPath
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle(fmt.Sprintf("Taxonomy (%s)", source)))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(cli.PrimaryColor)
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				headerStyle.Render("ID"),
				headerStyle.Render("Name"),
				headerStyle.Render("Keywords"))
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				strings.Repeat("-", 14),
				strings.Repeat("-", 20),
				strings.Repeat("-", 40))

			for _, cat := range tax.Categories {
				keywords := strings.Join(cat.Keywords, ", ")
				if keywords == "" {
					keywords = cli.SubtleStyle.Render("(none)")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", cat.ID, cat.Name, keywords)
			}
			return nil
		},
	}
}

func initTaxonomyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the built-in taxonomy to a file for editing",
		Long: `Write the built-in taxonomy to path, or to data.taxonomy_path when no path
is given. The format follows the extension (.json, .yaml or .yml).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			path := settings.TaxonomyPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return common.NewUserError("no path given and data.taxonomy_path is not set", nil)
			}
			if !taxonomy.SupportedFile(path) {
				return common.NewUserError(fmt.Sprintf("%s: expected a .json, .yaml or .yml file", path), nil)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return common.NewUserError(fmt.Sprintf("%s already exists; use --force to overwrite", path), nil)
			}

			if err := taxonomy.SaveFile(taxonomy.Default(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote taxonomy to %s", path)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
