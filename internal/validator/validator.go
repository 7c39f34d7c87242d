package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"

	"github.com/lateralab/soup-backend/internal/model"
)

// Translators for validation errors, one per supported client language.
var (
	transEN ut.Translator
	transZH ut.Translator
)

// Setup registers the validator with English and Chinese translations on
// Gin's binding engine. Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	zhLocale := zh.New()
	uni := ut.New(enLocale, enLocale, zhLocale)

	transEN, _ = uni.GetTranslator("en")
	transZH, _ = uni.GetTranslator("zh")
	en_translations.RegisterDefaultTranslations(v, transEN)
	zh_translations.RegisterDefaultTranslations(v, transZH)
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable message in the given language. If the error is
// not a validation error (e.g. a JSON syntax error), it returns a single-key
// map with "detail".
func TranslateErrors(err error, lang model.Language) map[string]string {
	fields := make(map[string]string)

	trans := transEN
	if lang == model.LanguageZH && transZH != nil {
		trans = transZH
	}

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) && trans != nil {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}, lang model.Language) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err, lang)
	}
	return nil
}
