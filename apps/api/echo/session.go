package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/session"
)

type sessionAPI struct {
	service  session.ServiceInterface
	validate *validator.Validate
}

func registerSessionAPI(g *echo.Group, service session.ServiceInterface, validate *validator.Validate) {
	api := &sessionAPI{service: service, validate: validate}
	g.POST("/auth/login", api.login)
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required,ident"`
		Password string `json:"password" validate:"required"`
	}

	LoginUser struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	}

	LoginResponse struct {
		Success bool      `json:"success"`
		Token   string    `json:"token"`
		User    LoginUser `json:"user"`
		Source  string    `json:"source"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	r.Username = core.CleanString(r.Username)
	return validate.Struct(r)
}

func (api *sessionAPI) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sess, err := api.service.Acquire(ctx.Request().Context(), session.Credentials{
		Username: data.Username,
		Password: data.Password,
	})
	if err != nil {
		if errors.Cause(err) == session.ErrInvalidCredentials {
			return errInvalidCredentials
		}
		return err
	}

	return ctx.JSON(http.StatusOK, LoginResponse{
		Success: true,
		Token:   sess.Token,
		User:    LoginUser{ID: sess.UserID, Name: sess.Name, Username: sess.Username},
		Source:  sess.Source,
	})
}
