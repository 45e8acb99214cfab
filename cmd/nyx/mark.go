package main

import (
	"github.com/nyxreleaseng/nyx/pkg/orchestrator"
	"github.com/spf13/cobra"
)

func newMarkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mark",
		Short: "Infer the next version, then commit/tag/push it",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline(cmd)
			if err != nil {
				return err
			}
			result, err := pipeline.RunUpTo(orchestrator.PhaseMark)
			if err != nil {
				return err
			}
			reportResult(result)
			return nil
		},
	}
}
