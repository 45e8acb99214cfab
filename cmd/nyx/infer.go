package main

import (
	"github.com/nyxreleaseng/nyx/pkg/orchestrator"
	"github.com/spf13/cobra"
)

func newInferCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "infer",
		Short: "Compute the next version without any git or network side effects",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline(cmd)
			if err != nil {
				return err
			}
			result, err := pipeline.RunUpTo(orchestrator.PhaseInfer)
			if err != nil {
				return err
			}
			reportResult(result)
			return nil
		},
	}
}
