package main

import (
	"fmt"

	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var (
		applications int
		completed    int
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the database with demo applications and reviews",
		Long: `Create demo applications in every status and assign the submitted ones to
the admins listed in the config file, round-robin, up to reviews_per_app
admins per application. The first --completed reviews of each admin are
decided so the completed view has content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(cfg.Admins) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: no [[admins]] in %s; only applications will be created\n", configPath)
			}

			st, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			admins := make([]storage.Admin, 0, len(cfg.Admins))
			for _, a := range cfg.Admins {
				admins = append(admins, storage.Admin{ID: a.ID, Email: a.Email})
			}
			res, err := storage.Seed(cmd.Context(), st, admins, storage.SeedOptions{
				Applications:     applications,
				ReviewsPerApp:    cfg.ReviewsPerApp,
				CompletedPerUser: completed,
				Seed:             seed,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d applications, %d reviews (%d decided) for %d admins\n",
				res.Applications, res.Reviews, res.Votes, len(admins))
			return nil
		},
	}

	cmd.Flags().IntVar(&applications, "applications", 40, "number of applications to create")
	cmd.Flags().IntVar(&completed, "completed", 3, "reviews to decide per admin")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	return cmd
}
