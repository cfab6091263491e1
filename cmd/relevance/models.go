package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/domain"
	"github.com/kailas-cloud/relevance/internal/jsonx"
	"github.com/kailas-cloud/relevance/internal/repository/metadata"
)

func modelsCMD(a *app) *cobra.Command {
	var asJSON, fromRegistry bool

	models := &cobra.Command{
		Use:         "models",
		Short:       "Compare all trained models",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationConfig: configOptional},
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if fromRegistry {
				reg, err := a.registry(cmd.Context())
				if err != nil {
					return err
				}
				if reg == nil {
					return errors.New("no registry configured (registry.addrs)")
				}
				runs, err := reg.Runs(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return jsonx.NewEncoder(out).Encode(runs)
				}
				return printRuns(out, runs)
			}

			list, err := metadata.New(a.cfg.Models.Dir).List()
			if err != nil {
				return err
			}
			current, err := metadata.New(a.cfg.Models.Dir).Current()
			if err != nil && !errors.Is(err, domain.ErrNoCurrentModel) {
				return err
			}
			production, err := metadata.New(a.cfg.Models.ProductionDir).Production()
			if err != nil && !errors.Is(err, domain.ErrNoCurrentModel) {
				return err
			}

			if asJSON {
				return jsonx.NewEncoder(out).Encode(list)
			}
			return printModels(out, list, current.ModelPath, production.ModelPath)
		},
	}
	models.Flags().BoolVar(&asJSON, "json", false, "print the records as JSON")
	models.Flags().BoolVar(&fromRegistry, "registry", false, "list training runs recorded in the registry")
	return models
}
