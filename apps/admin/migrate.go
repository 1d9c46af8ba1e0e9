package main

import (
	"github.com/spf13/cobra"

	"github.com/chihwayi/ecd-materials-generator-sub003/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, down, status, create NAME sql, ...)",
		Args:  cobra.ArbitraryArgs,
		// goose parses its own arguments
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			db, err := cli.openDB()
			if err != nil {
				return err
			}
			return gooseRunFunc(db, cli.conf.Database.Engine, args[0], args[1:]...)
		},
	}
}
