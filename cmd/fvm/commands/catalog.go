/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: catalog.go
Description: catalog commands. Validate a pattern catalog before deploying it and
list the rows of the active one.
*/

package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/kleascm/fvm/pkg/catalog"
	"github.com/spf13/cobra"
)

// RunCatalogValidate loads a catalog and reports every row the classifier would skip
func RunCatalogValidate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	path := cfg.Catalog.Path
	if len(args) == 1 {
		path = args[0]
	}

	cat, err := catalog.NewLazy(path).Get()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	issues := cat.Validate()
	for _, issue := range issues {
		fmt.Fprintf(out, "✗ %s\n", issue)
	}
	if len(issues) > 0 {
		return fmt.Errorf("%s: %d of %d rows invalid", cat.Source, len(issues), len(cat.Patterns))
	}
	fmt.Fprintf(out, "✓ %s: %d rows, %d categories\n", cat.Source, len(cat.Patterns), len(cat.Categories()))
	return nil
}

// RunCatalogList prints the active catalog grouped by category
func RunCatalogList(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	cat, err := catalog.NewLazy(cfg.Catalog.Path).Get()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tKIND\tPATTERN\tCODE")
	for _, category := range cat.Categories() {
		for _, p := range cat.Patterns {
			if p.Category != category {
				continue
			}
			kind := "literal"
			if p.Regex() {
				kind = "regex"
			}
			if p.When != "" {
				kind += "+when"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Category, kind, p.Pattern, p.ErrorCode)
		}
	}
	return w.Flush()
}
