package cli

import (
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/vk/benchgrid/internal/app"
)

func newRunCmd(state *rootState, defaultThreads int) *cobra.Command {
	var args app.RunArgs
	cmd := &cobra.Command{
		Use:   "run CONFIG",
		Short: "Build the project, then run every pending job of the matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			if err := a.Build(cmd.Context()); err != nil {
				return err
			}
			return a.Run(cmd.Context(), args)
		},
	}
	cmd.Flags().IntVarP(&args.Threads, "threads", "n", defaultThreads, "worker pool width")
	cmd.Flags().StringVarP(&args.GlobalTimeout, "global-timeout", "g", "", "per-job timeout overriding the configuration, e.g. 90s or 5m")
	cmd.Flags().BoolVar(&args.WithInProgress, "with-in-progress", false, "re-admit jobs left in_progress by a dead attempt")
	cmd.Flags().BoolVar(&args.WithTimeout, "with-timeout", false, "re-admit jobs that previously timed out")
	cmd.Flags().BoolVar(&args.WithFailure, "with-failure", false, "re-admit jobs flagged by the failure policy")
	cmd.Flags().StringArrayVar(&args.Only, "only", nil, "restrict scheduling to the named job ids, repeatable")
	return cmd
}

func newBuildCmd(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "build CONFIG",
		Short: "Run the project's build command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.Build(cmd.Context())
		},
	}
}

func newCleanCmd(state *rootState) *cobra.Command {
	var (
		zipWith   []string
		assumeYes bool
		noBackup  bool
	)
	cmd := &cobra.Command{
		Use:   "clean CONFIG",
		Short: "Run the project's clean command, backing up results first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			save := false
			if a.HasResults() && !noBackup {
				save = true
				if !assumeYes {
					confirm := huh.NewConfirm().
						Title("Save the previous results before cleaning?").
						Value(&save)
					if err := confirm.Run(); err != nil {
						return err
					}
				}
			}
			return a.Clean(cmd.Context(), save, zipWith)
		},
	}
	cmd.Flags().StringArrayVarP(&zipWith, "zip-with", "z", nil, "extra path to include in the backup snapshot, repeatable")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "back up without asking")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "discard results without a backup snapshot")
	return cmd
}

func newZipCmd(state *rootState) *cobra.Command {
	var zipWith []string
	cmd := &cobra.Command{
		Use:   "zip CONFIG",
		Short: "Write a snapshot archive of the campaign state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.Zip(cmd.Context(), zipWith)
		},
	}
	cmd.Flags().StringArrayVarP(&zipWith, "zip-with", "z", nil, "extra path to include in the snapshot, repeatable")
	return cmd
}

func newFetchCmd(state *rootState) *cobra.Command {
	var commit string
	cmd := &cobra.Command{
		Use:   "fetch CONFIG",
		Short: "Clone the versioned sources and check out the pinned commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.Fetch(cmd.Context(), commit)
		},
	}
	cmd.Flags().StringVar(&commit, "commit", "", "commit to check out, overriding the configured pin")
	return cmd
}

func newShowCmd(state *rootState) *cobra.Command {
	show := &cobra.Command{
		Use:   "show",
		Short: "Inspect a campaign without touching it",
	}

	notes := &cobra.Command{
		Use:   "notes CONFIG",
		Short: "Render the project description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.ShowNotes(cmd.Context())
		},
	}

	var sortBy []string
	summary := &cobra.Command{
		Use:   "summary CONFIG",
		Short: "Print the summary table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.ShowSummary(cmd.Context(), sortBy)
		},
	}
	summary.Flags().StringArrayVarP(&sortBy, "sort", "s", nil, "column to sort by, '~' prefix reverses, repeatable")

	var only []string
	statusCmd := &cobra.Command{
		Use:   "status CONFIG",
		Short: "Print the per-job state table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.ShowStatus(cmd.Context(), only)
		},
	}
	statusCmd.Flags().StringArrayVar(&only, "only", nil, "restrict the table to the named job ids, repeatable")

	var pretty bool
	jsonCmd := &cobra.Command{
		Use:   "json CONFIG",
		Short: "Print the resolved project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, pos []string) error {
			a, err := state.newApp(pos[0])
			if err != nil {
				return err
			}
			return a.ShowJSON(cmd.Context(), pretty)
		},
	}
	jsonCmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "indent the JSON output")

	show.AddCommand(notes, summary, statusCmd, jsonCmd)
	return show
}
