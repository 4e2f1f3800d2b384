package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/billing"
	"github.com/trezcool/darasa/core/user"
)

type userApi struct {
	svc      *user.Service
	billing  *billing.Service
	validate *validator.Validate
}

func registerUserAPI(g *echo.Group, svc *user.Service, billSvc *billing.Service, validate *validator.Validate) {
	api := userApi{
		svc:      svc,
		billing:  billSvc,
		validate: validate,
	}

	ug := g.Group("/users")
	ug.POST("", api.create)
	ug.GET("", api.query)

	dg := ug.Group("/:id")
	dg.GET("", api.retrieve)
	dg.GET("/account", api.account)
	dg.POST("/account/topup", api.topUp)
	dg.GET("/transactions", api.transactions)
}

// Handlers

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) query(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	usr, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) account(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	acc, err := api.billing.Account(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, acc)
}

type TopUpRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (api *userApi) topUp(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var data TopUpRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TopUpRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	// reject top ups for unknown users before touching the ledger
	if _, err = api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return err
	}
	txn, err := api.billing.Credit(ctx.Request().Context(), id, data.Amount, billing.TxnTopUp)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, txn)
}

func (api *userApi) transactions(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var page Pagination
	page.Bind(ctx)

	txns, err := api.billing.Transactions(ctx.Request().Context(), id, page.Offset, page.Limit)
	if err != nil {
		return errors.Wrap(err, "querying transactions")
	}
	return ctx.JSON(http.StatusOK, txns)
}
