package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/metrics"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "relevance",
		Short:         "Train, evaluate and apply the article relevance classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.log != nil {
				metrics.LastRunTimestamp.WithLabelValues(cmd.Name()).Set(float64(time.Now().Unix()))
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default is config/<ENV>.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		trainCMD(a),
		evaluateCMD(a),
		classifyCMD(a),
		classifyDirCMD(a),
		modelsCMD(a),
		deployCMD(a),
		statsCMD(a),
		versionCMD(),
	)
	return root
}
