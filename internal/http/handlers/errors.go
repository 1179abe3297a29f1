package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"smmart/internal/accounts"
	"smmart/internal/subscription"
)

var errNotFound = errors.New("not found")

// RegisterValidation makes validation errors report JSON field names.
func RegisterValidation() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// bindJSON decodes and validates the body into dst. On failure it writes a
// 400 with per-field messages and returns false.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": fieldErrors(err, typeName(dst))})
		return false
	}
	return true
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func fieldErrors(err error, top string) map[string]string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe, top)] = fieldMessage(fe)
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return map[string]string{typeErr.Field: "Incorrect type. Expected " + typeErr.Type.String() + "."}
	}
	return map[string]string{"non_field_errors": "Invalid request body."}
}

// fieldPath drops the top-level struct name from the namespace, leaving
// "organization.name" style paths. Anonymous structs carry no prefix.
func fieldPath(fe validator.FieldError, top string) string {
	ns := fe.Namespace()
	if top != "" {
		ns = strings.TrimPrefix(ns, top+".")
	}
	ns = strings.TrimPrefix(ns, ".")
	if ns == "" {
		return fe.Field()
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "url":
		return "Enter a valid URL."
	default:
		return "Invalid value."
	}
}

// missingFields writes a 400 naming every field whose presence flag is false.
func missingFields(c *gin.Context, present map[string]bool) bool {
	errs := gin.H{}
	for field, ok := range present {
		if !ok {
			errs[field] = "This field is required."
		}
	}
	if len(errs) == 0 {
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"errors": errs})
	return true
}

func fieldError(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{field: msg}})
}

// respondError maps service errors to responses. Anything unknown is logged
// and reported as a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subscription.ErrPackageNotFound),
		errors.Is(err, subscription.ErrNoActiveSubscription),
		errors.Is(err, subscription.ErrOrganizationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, accounts.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"errors": gin.H{"email": err.Error()}})
	case errors.Is(err, accounts.ErrEmailRequired):
		fieldError(c, "email", err.Error())
	case errors.Is(err, accounts.ErrRoleNotFound):
		fieldError(c, "role", err.Error())
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
