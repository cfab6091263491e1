package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/repository/metadata"
	"github.com/kailas-cloud/relevance/internal/usecase/deploy"
)

func deployCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Promote the current model to the production directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			arts, err := a.artifactStore()
			if err != nil {
				return err
			}
			var opts []deploy.Option
			reg := a.publisher(ctx)
			if reg != nil {
				opts = append(opts, deploy.WithPublisher(reg))
			}

			svc := deploy.New(
				metadata.New(a.cfg.Models.Dir),
				metadata.New(a.cfg.Models.ProductionDir),
				arts,
				opts...,
			)
			meta, err := svc.Deploy(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deployed %s -> %s\n", meta.ModelPath, meta.ProdModelPath)
			return err
		},
	}
}
