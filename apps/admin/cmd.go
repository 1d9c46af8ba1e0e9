package main

import (
	"errors"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
	"github.com/chihwayi/ecd-materials-generator-sub003/storage/database"
)

var (
	isTerminalFunc = isTerminal // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	out    io.Writer
	errOut io.Writer // warnings; discarded when nil
	db     *sqlx.DB  // opened on first use
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (cli *commandLine) openDB() (*sqlx.DB, error) {
	if cli.db != nil {
		return cli.db, nil
	}
	db, err := database.Open(cli.conf)
	if err != nil {
		return nil, err
	}
	cli.db = db
	return db, nil
}

func (cli *commandLine) close() {
	if cli.db != nil {
		_ = cli.db.Close()
		cli.db = nil
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administer the ECD materials service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	if cli.errOut != nil {
		root.SetErr(cli.errOut)
	} else {
		root.SetErr(io.Discard)
	}
	root.AddCommand(
		cli.migrateCmd(),
		cli.catalogCmd(),
		cli.renderCmd(),
		cli.validateCmd(),
		cli.diffCmd(),
		cli.newCmd(),
	)
	return root
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}
