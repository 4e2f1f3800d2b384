package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/billing"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

func setup(t *testing.T) (*user.Service, billing.Repository) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	accRepo := inmemdb.NewAccountRepository(db)
	return user.NewService(db, inmemdb.NewUserRepository(db), accRepo), accRepo
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, accRepo := setup(t)

	usr, err := svc.Create(ctx, user.NewUser{
		Name:     "Awe Mukalenga",
		Email:    "  AWE@test.cd ",
		Password: "s3cr3tP#one",
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if usr.ID == 0 {
		t.Error("Create() did not assign an ID")
	}
	if usr.Email != "awe@test.cd" {
		t.Errorf("Email = %q; want cleaned lowercase", usr.Email)
	}
	if !usr.IsActive {
		t.Error("new user is not active")
	}
	if err = usr.CheckPassword("s3cr3tP#one"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}

	// the ledger account opens with the user
	acc, err := accRepo.GetAccount(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if acc.Balance != 0 {
		t.Errorf("Balance = %v; want 0", acc.Balance)
	}
	if !acc.IsActive {
		t.Error("new account is not active")
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Create(ctx, user.NewUser{
			Name:     "Imposter",
			Email:    "awe@test.cd",
			Password: "an0therP#wd",
		})
		vErr, ok := errors.Cause(err).(*core.ValidationError)
		if !ok {
			t.Fatalf("Create() error = %v; want ValidationError", err)
		}
		if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "email" {
			t.Errorf("Fields = %+v; want one error on email", vErr.Fields)
		}
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	usr, err := svc.Create(ctx, user.NewUser{Name: "Awe", Email: "awe@test.cd", Password: "s3cr3tP#one"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := svc.GetByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Email != usr.Email {
		t.Errorf("GetByID() = %+v; want %+v", got, usr)
	}

	if _, err = svc.GetByID(ctx, 999); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("GetByID() error = %v; want %v", err, user.ErrNotFound)
	}

	got, err = svc.GetByEmail(ctx, " AWE@test.cd ")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	if got.ID != usr.ID {
		t.Errorf("GetByEmail() = %+v; want %+v", got, usr)
	}

	all, err := svc.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("len(all) = %d; want 1", len(all))
	}
}
