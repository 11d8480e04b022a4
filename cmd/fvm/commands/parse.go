/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parse.go
Description: parse command. Runs the parsing pipeline over saved mvt-android output
and prints the ParseResult, or the error envelope, as JSON.
*/

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/spf13/cobra"
)

// RunParse parses a file or standard input
func RunParse(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	raw, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	parser, _, err := BuildParser(cfg, logger.GetLogger())
	if err != nil {
		return err
	}

	pretty, _ := cmd.Flags().GetBool("pretty")
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}

	result, err := parser.Parse(raw)
	if err != nil {
		logger.LogError("Parse failed", err)
		appErr := apperr.From(err)
		if encErr := enc.Encode(appErr.Response()); encErr != nil {
			return encErr
		}
		return appErr
	}
	logger.LogParse("", len(result.Logs), len(result.Messages), result.Success)
	return enc.Encode(result)
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}
