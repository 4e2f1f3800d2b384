package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/billing"
	"github.com/trezcool/darasa/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db  *sqlx.DB
	out io.Writer

	atom    core.Atomizer
	usrRepo user.Repository
	accRepo billing.Repository
	billSvc *billing.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  adduser -name NAME -email EMAIL -password PASSWORD [-admin] - create or reactivate a user")
	fmt.Println("  credit -user ID -amount AMOUNT - credit a user's account")
	fmt.Println("  report -user ID - export a user's transactions as CSV")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserPwd := addUserCmd.String("password", "", "The user's password.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant admin rights.")

	creditCmd := flag.NewFlagSet("credit", flag.ExitOnError)
	creditUserID := creditCmd.Int("user", 0, "The user's ID.")
	creditAmount := creditCmd.Float64("amount", 0, "The amount to credit.")

	reportCmd := flag.NewFlagSet("report", flag.ExitOnError)
	reportUserID := reportCmd.Int("user", 0, "The user's ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" || *addUserPwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, *addUserPwd, *addUserAdmin)
	case "credit":
		if err := creditCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *creditUserID <= 0 || *creditAmount <= 0 {
			creditCmd.Usage()
			return errHelp
		}
		return cli.credit(*creditUserID, *creditAmount)
	case "report":
		if err := reportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reportUserID <= 0 {
			reportCmd.Usage()
			return errHelp
		}
		return cli.report(*reportUserID)
	default:
		cli.printUsage()
		return errHelp
	}
}
