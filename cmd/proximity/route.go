package main

import (
	"fmt"

	"github.com/LdDl/proximity"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <from> <to>",
	Short: "Print travel time between two nodes (real node ID, g<i> or s<i>)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		net, _, _, err := prepareNetwork(cfg)
		if err != nil {
			return err
		}
		from, ok := net.Resolve(args[0])
		if !ok {
			return errors.Wrapf(proximity.ErrUnknownNode, "Source '%s'", args[0])
		}
		to, ok := net.Resolve(args[1])
		if !ok {
			return errors.Wrapf(proximity.ErrUnknownNode, "Target '%s'", args[1])
		}
		router, err := proximity.NewRouter(net)
		if err != nil {
			return err
		}
		cost, path, err := router.TravelTime(from, to)
		if err != nil {
			return err
		}
		if path == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s is unreachable from %s\n", args[1], args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "travel time: %f min, %d nodes on path\n", cost, len(path))
		return nil
	},
}
