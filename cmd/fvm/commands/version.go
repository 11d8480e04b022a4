/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: version.go
Description: version command.
*/

package commands

import (
	"fmt"
	"runtime"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/spf13/cobra"
)

// PrintVersion prints build and error taxonomy versions
func PrintVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "fvm %s\n", Version)
	fmt.Fprintf(out, "error taxonomy %s\n", apperr.TaxonomyVersion)
	fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
