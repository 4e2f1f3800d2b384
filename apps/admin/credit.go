package main

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core/billing"
)

// credit adds funds to the user's account as an admin-granted credit.
func (cli *commandLine) credit(userID int, amount float64) error {
	ctx := context.Background()

	txn, err := cli.billSvc.Credit(ctx, userID, amount, billing.TxnAdminCredit)
	if err != nil {
		return err
	}

	acc, err := cli.accRepo.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "transaction %d: credited %.2f to user %d (balance: %.2f)\n", txn.ID, amount, userID, acc.Balance)
	return nil
}
