package main

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser creates a user.User together with their ledger account.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrRepo.CheckEmailUniqueness(ctx, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr := user.User{
		Name:      core.CleanString(name),
		Email:     email,
		IsActive:  true,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	return cli.atom.Atomic(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = cli.usrRepo.CreateUser(ctx, usr, exec); err != nil {
			return err
		}
		_, err = cli.accRepo.CreateAccount(ctx, usr.ID, exec)
		return err
	})
}
