package main

import (
	"github.com/LdDl/proximity"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build accessibility baseline and write it to cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Build.Cache == "" {
			return errors.New("build.cache is required for build command")
		}
		categories, err := proximity.NewCategorySet(cfg.Categories...)
		if err != nil {
			return errors.Wrap(err, "Bad categories")
		}
		base, _, err := buildBaseline(cmd.Context(), cfg, categories, nil)
		if err != nil {
			return err
		}
		zap.L().Info("baseline ready",
			zap.Int("samples", base.SamplesNum()),
			zap.Int("cells", base.CellsNum()),
		)
		return nil
	},
}
