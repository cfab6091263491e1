package main

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/relevance/internal/jsonx"
	"github.com/kailas-cloud/relevance/internal/usecase/inference"
)

func classifyCMD(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "classify <artifact> <document.json>",
		Short:       "Classify one document and print the result as JSON",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{annotationConfig: configOptional},
		RunE: func(cmd *cobra.Command, args []string) error {
			arts, err := a.artifactStore()
			if err != nil {
				return err
			}
			pred, err := inference.New(arts, a.cfg.Corpus.Extension).ClassifyFile(args[0], args[1])
			if err != nil {
				return err
			}
			return jsonx.NewEncoder(cmd.OutOrStdout()).Encode(pred)
		},
	}
}

func classifyDirCMD(a *app) *cobra.Command {
	var savePath string
	var asJSON bool

	classifyDir := &cobra.Command{
		Use:         "classify-dir <artifact> <dir>",
		Short:       "Classify every document in a directory",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{annotationConfig: configOptional},
		RunE: func(cmd *cobra.Command, args []string) error {
			arts, err := a.artifactStore()
			if err != nil {
				return err
			}
			res, err := inference.New(arts, a.cfg.Corpus.Extension).ClassifyDir(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if savePath != "" {
				if err := inference.SaveResults(savePath, res); err != nil {
					return err
				}
			}

			if asJSON {
				return jsonx.NewEncoder(cmd.OutOrStdout()).Encode(res)
			}
			return printDirResult(cmd.OutOrStdout(), res)
		},
	}
	classifyDir.Flags().StringVar(&savePath, "save", "", "write the results to this JSON file")
	classifyDir.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return classifyDir
}
