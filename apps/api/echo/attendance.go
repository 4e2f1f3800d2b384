package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{
		svc:      svc,
		validate: validate,
	}

	sg := g.Group("/subjects")
	sg.POST("", api.createSubject)
	sg.GET("", api.querySubjects)

	lg := g.Group("/lessons")
	lg.POST("", api.createLesson)
	lg.GET("", api.queryLessons)
	lg.GET("/:id", api.retrieveLesson)

	g.POST("/attendances", api.record)
	g.GET("/users/:id/attendances", api.queryByUser)
}

// Handlers

func (api *attendanceApi) createSubject(ctx echo.Context) error {
	var data attendance.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *attendanceApi) querySubjects(ctx echo.Context) error {
	subs, err := api.svc.QuerySubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *attendanceApi) createLesson(ctx echo.Context) error {
	var data attendance.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	les, err := api.svc.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, les)
}

func (api *attendanceApi) queryLessons(ctx echo.Context) error {
	lessons, err := api.svc.QueryLessons(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *attendanceApi) retrieveLesson(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	les, err := api.svc.GetLesson(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, les)
}

func (api *attendanceApi) record(ctx echo.Context) error {
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	att, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, att)
}

func (api *attendanceApi) queryByUser(ctx echo.Context) error {
	id, err := pathID(ctx, "id")
	if err != nil {
		return err
	}
	var page Pagination
	page.Bind(ctx)

	atts, err := api.svc.QueryByUser(ctx.Request().Context(), id, page.Offset, page.Limit)
	if err != nil {
		return errors.Wrap(err, "querying attendances")
	}
	return ctx.JSON(http.StatusOK, atts)
}
