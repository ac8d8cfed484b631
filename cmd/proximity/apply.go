package main

import (
	"os"

	"github.com/LdDl/proximity"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply [configuration.json]",
	Short: "Apply single land-use configuration and write results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := prepareEngine(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "Can't read configuration")
		}
		conf, err := proximity.ParseConfiguration(data)
		if err != nil {
			return err
		}
		opts, err := updateOptions(cfg, nil)
		if err != nil {
			return err
		}
		snap, err := proximity.ApplyConfiguration(eng.base, eng.catalogue, conf, opts)
		if err != nil {
			return err
		}
		publisher, err := proximity.NewFilePublisher(cfg.Output.Dir)
		if err != nil {
			return err
		}
		return proximity.MultiPublisher{publisher, proximity.LogPublisher{}}.Publish(cmd.Context(), snap)
	},
}
