package echoapi

import (
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gablilli/selfhosted-classeviva/core"
	"github.com/gablilli/selfhosted-classeviva/core/grade"
	"github.com/gablilli/selfhosted-classeviva/core/session"
)

type gradeAPI struct {
	service  grade.ServiceInterface
	validate *validator.Validate
}

func registerGradeAPI(g *echo.Group, auth echo.MiddlewareFunc, service grade.ServiceInterface, validate *validator.Validate) {
	api := &gradeAPI{service: service, validate: validate}
	gg := g.Group("/grades", auth)
	gg.POST("", api.grades)
	gg.GET("/summary", api.summary)
	gg.GET("/subjects/:name", api.subject)
	gg.GET("/history", api.history)
}

type (
	GradesRequest struct {
		SessionToken string `json:"sessionToken"`
		UserID       string `json:"userId"`
	}

	GradesResponse struct {
		Success   bool            `json:"success"`
		Subjects  []grade.Subject `json:"subjects"`
		Synthetic bool            `json:"synthetic"`
	}

	SummaryResponse struct {
		Success   bool          `json:"success"`
		Summary   grade.Summary `json:"summary"`
		Synthetic bool          `json:"synthetic"`
	}

	SubjectResponse struct {
		Success   bool                `json:"success"`
		Subject   grade.SubjectDetail `json:"subject"`
		Synthetic bool                `json:"synthetic"`
	}

	HistoryResponse struct {
		Success bool                `json:"success"`
		Grades  []grade.StoredGrade `json:"grades"`
	}
)

func (r *GradesRequest) Validate(validate *validator.Validate) error {
	r.SessionToken = core.CleanString(r.SessionToken)
	r.UserID = core.CleanString(r.UserID)
	return validate.Struct(r)
}

func (api *gradeAPI) grades(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	data := new(GradesRequest)
	if err = ctx.Bind(data); err != nil {
		return err
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}
	// a session may only read its own grades
	if data.UserID != "" && data.UserID != claims.UserID() {
		return errHttpForbidden
	}

	token := claims.UpstreamToken
	if data.SessionToken != "" {
		token = data.SessionToken
	}
	res, err := api.retrieve(ctx, claims, token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, GradesResponse{Success: true, Subjects: res.Subjects, Synthetic: res.Synthetic})
}

func (api *gradeAPI) summary(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	res, err := api.retrieve(ctx, claims, claims.UpstreamToken)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SummaryResponse{Success: true, Summary: grade.Summarize(res.Subjects), Synthetic: res.Synthetic})
}

func (api *gradeAPI) subject(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	name, err := url.PathUnescape(ctx.Param("name"))
	if err != nil {
		return errHttpNotFound
	}
	res, err := api.retrieve(ctx, claims, claims.UpstreamToken)
	if err != nil {
		return err
	}

	detail, err := grade.Detail(res.Subjects, name)
	if err != nil {
		if errors.Cause(err) == grade.ErrSubjectNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, SubjectResponse{Success: true, Subject: detail, Synthetic: res.Synthetic})
}

func (api *gradeAPI) history(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	ord := new(Ordering)
	ord.Bind(ctx)

	grades, err := api.service.History(ctx.Request().Context(), claims.UserID(), ord.OrderingFor(grade.OrderingFields))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, HistoryResponse{Success: true, Grades: grades})
}

func (api *gradeAPI) retrieve(ctx echo.Context, claims *session.Claims, upstreamToken string) (grade.Result, error) {
	res, err := api.service.Retrieve(ctx.Request().Context(), upstreamToken, claims.UserID())
	if err != nil {
		if errors.Cause(err) == grade.ErrUpstreamRejected {
			return grade.Result{}, errUpstreamRejected
		}
		return grade.Result{}, err
	}
	return res, nil
}
