package main

import (
	"fmt"

	"github.com/nyxreleaseng/nyx/pkg/console"
	"github.com/spf13/cobra"
)

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the state file so the next run starts fresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline(cmd)
			if err != nil {
				return err
			}
			if err := pipeline.Clean(); err != nil {
				return err
			}
			fmt.Println(console.FormatSuccessMessage("state file removed"))
			return nil
		},
	}
}
