package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/courtois-neuromod/vgutils/version"
)

func (a *app) newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			info := version.Get()
			if short {
				_, err := fmt.Fprintln(a.stdout, info.String())

				return err
			}

			return info.Write(a.stdout)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print a single line")

	return cmd
}
