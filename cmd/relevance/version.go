package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/version"
)

func versionCMD() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfig: configNone},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}
}
