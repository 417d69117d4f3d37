package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cppla/blogd/middleware"
	"github.com/cppla/blogd/services"
	"github.com/cppla/blogd/utils"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules and makes validation
// messages use JSON field names. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
		_ = v.RegisterValidation("tagname", func(fl validator.FieldLevel) bool {
			return services.ValidTagName(fl.Field().String())
		})
	})
}

var statusByKind = map[services.Kind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindUnauthorized: http.StatusUnauthorized,
	services.KindForbidden:    http.StatusForbidden,
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusConflict,
}

// fail writes a service error, or logs an unexpected one and answers 500.
func fail(ctx *gin.Context, err error) {
	var se *services.Error
	if errors.As(err, &se) {
		utils.Error(ctx, statusByKind[se.Kind], se.Code, se.Message)
		return
	}
	utils.Logger.Error("request failed",
		zap.Error(err),
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.String(utils.RequestIDKey, ctx.GetString(utils.RequestIDKey)),
	)
	_ = ctx.Error(err)
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}

// badRequest reports a binding failure with the first validation problem.
func badRequest(ctx *gin.Context, err error) {
	utils.Error(ctx, http.StatusBadRequest, 40000, bindingMessage(err))
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "email":
			return fmt.Sprintf("%s must be a valid email", fe.Field())
		case "url":
			return fmt.Sprintf("%s must be a valid URL", fe.Field())
		case "min":
			return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
		case "oneof":
			return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
		case "tagname":
			return services.ErrInvalidTagName.Message
		}
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return "query parameter must be a positive number"
	}
	return "invalid request payload"
}

// parseID reads a positive integer path parameter, answering 400 when malformed.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}
