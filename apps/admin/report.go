package main

import (
	"context"
	"encoding/csv"
	"strconv"
	"time"
)

var reportHeader = []string{"id", "user_id", "amount", "type", "prediction_id", "created_at"}

// report writes the user's full transaction history as CSV, newest first.
func (cli *commandLine) report(userID int) error {
	ctx := context.Background()

	w := csv.NewWriter(cli.out)
	if err := w.Write(reportHeader); err != nil {
		return err
	}

	offset := 0
	const pageSize = 500
	for {
		txns, err := cli.accRepo.QueryTransactionsByUser(ctx, userID, offset, pageSize)
		if err != nil {
			return err
		}
		for _, txn := range txns {
			predID := ""
			if txn.PredictionID != nil {
				predID = strconv.Itoa(*txn.PredictionID)
			}
			record := []string{
				strconv.Itoa(txn.ID),
				strconv.Itoa(txn.UserID),
				strconv.FormatFloat(txn.Amount, 'f', 2, 64),
				txn.Type,
				predID,
				txn.CreatedAt.Format(time.RFC3339),
			}
			if err = w.Write(record); err != nil {
				return err
			}
		}
		if len(txns) < pageSize {
			break
		}
		offset += pageSize
	}

	w.Flush()
	return w.Error()
}
