package main

import (
	"github.com/nyxreleaseng/nyx/pkg/orchestrator"
	"github.com/spf13/cobra"
)

func newMakeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "make",
		Short: "Infer, mark, then build the changelog",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline(cmd)
			if err != nil {
				return err
			}
			result, err := pipeline.RunUpTo(orchestrator.PhaseMake)
			if err != nil {
				return err
			}
			reportResult(result)
			return nil
		},
	}
}
