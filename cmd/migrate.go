package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/spigell/shift-swap/internal/store/postgres"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down|version|force N>",
	Short:     "Manage the postgres schema",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"up", "down", "version", "force"},
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}
		if config.Store.DatabaseURL == "" {
			return errors.New("store.database-url is required")
		}

		m, err := postgres.NewMigrator(config.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer m.Close()

		out := cmd.OutOrStdout()

		switch args[0] {
		case "up":
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("run up migrations: %w", err)
			}
			fmt.Fprintln(out, "migrations applied")
		case "down":
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("down drops every table, pass --yes to confirm")
			}
			if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("run down migrations: %w", err)
			}
			fmt.Fprintln(out, "migrations reverted")
		case "version":
			v, dirty, err := m.Version()
			if err != nil {
				return fmt.Errorf("get version: %w", err)
			}
			fmt.Fprintf(out, "version: %d, dirty: %v\n", v, dirty)
		case "force":
			if len(args) != 2 {
				return errors.New("force needs a version")
			}
			v, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad version %q: %w", args[1], err)
			}
			if err := m.Force(v); err != nil {
				return fmt.Errorf("force version: %w", err)
			}
			fmt.Fprintf(out, "forced to version %d\n", v)
		default:
			return fmt.Errorf("unknown migrate action %q", args[0])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolP("yes", "y", false, "confirm destructive actions")
}
