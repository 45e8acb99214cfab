package main

import (
	"github.com/nyxreleaseng/nyx/pkg/orchestrator"
	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "publish",
		Aliases: []string{"release"},
		Short:   "Infer, mark, make, then publish the release to every configured hosting service",
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline(cmd)
			if err != nil {
				return err
			}
			result, err := pipeline.RunUpTo(orchestrator.PhasePublish)
			if err != nil {
				return err
			}
			reportResult(result)
			return nil
		},
	}
}
