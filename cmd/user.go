package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"helpfinder/internal/app"
	"helpfinder/internal/config"
	"helpfinder/internal/logger"
	"helpfinder/internal/services"
)

var promoteEmail string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userPromoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Give an existing account the admin role",
	Long:  "Gives an existing account the admin role. Use it to create the first admin of a new database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if promoteEmail == "" {
			return errors.New("--email is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		log, err := logger.New(cfg.Log.Development)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		store, err := app.OpenStore(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("[db] close", zap.Error(err))
			}
		}()

		users := services.NewUserService(services.Deps{Store: store, Log: log}, nil)
		u, err := users.PromoteByEmail(cmd.Context(), promoteEmail)
		if err != nil {
			return err
		}
		cmd.Printf("%s is now an admin\n", u.Email)
		return nil
	},
}

func init() {
	userPromoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the account to promote")
	userCmd.AddCommand(userPromoteCmd)
	rootCmd.AddCommand(userCmd)
}
