package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/prediction"
)

type predictionApi struct {
	svc      *prediction.Service
	validate *validator.Validate
}

func registerPredictionAPI(g *echo.Group, svc *prediction.Service, validate *validator.Validate) {
	api := predictionApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/predictions")
	pg.POST("", api.submit)
	pg.GET("", api.query)
	pg.GET("/:id", api.retrieve)

	g.GET("/users/:id/predictions", api.queryByUser)
}

// Handlers

type SubmitRequest struct {
	UserID   int `json:"user_id" validate:"required,gt=0"`
	LessonID int `json:"lesson_id" validate:"required,gt=0"`
}

// submit bills the user and queues the prediction; fulfillment is
// asynchronous, so the pending request comes back as 202.
func (api *predictionApi) submit(ctx echo.Context) error {
	var data SubmitRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	req, err := api.svc.Submit(ctx.Request().Context(), data.UserID, data.LessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, req)
}

func (api *predictionApi) query(ctx echo.Context) error {
	var page Pagination
	page.Bind(ctx)

	reqs, err := api.svc.QueryAll(ctx.Request().Context(), page.Offset, page.Limit)
	if err != nil {
		return errors.Wrap(err, "querying predictions")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *predictionApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	req, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *predictionApi) queryByUser(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var page Pagination
	page.Bind(ctx)

	reqs, err := api.svc.HistoryByUser(ctx.Request().Context(), id, page.Offset, page.Limit)
	if err != nil {
		return errors.Wrap(err, "querying prediction history")
	}
	return ctx.JSON(http.StatusOK, reqs)
}
