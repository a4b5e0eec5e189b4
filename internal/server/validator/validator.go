// Package validator wires go-playground/validator into gin binding with
// English messages and JSON field names.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/nulzo/chat-registry/internal/credentials"
)

// SecretNameTag accepts credential names carrying the secret marker.
const SecretNameTag = "secret_name"

var (
	trans ut.Translator
	once  sync.Once
)

// InitValidator configures gin's validator engine. Safe to call repeatedly.
func InitValidator() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "uri"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation(SecretNameTag, func(fl validator.FieldLevel) bool {
			return credentials.IsSecretName(fl.Field().String())
		})

		locale := en.New()
		uni := ut.New(locale, locale)
		trans, _ = uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		_ = v.RegisterTranslation(SecretNameTag, trans,
			func(ut ut.Translator) error {
				return ut.Add(SecretNameTag, "{0} must contain "+credentials.SecretMarker, true)
			},
			func(ut ut.Translator, fe validator.FieldError) string {
				msg, _ := ut.T(SecretNameTag, fe.Field())
				return msg
			},
		)
	})
}

// ParseValidationError maps each failing field, by its dotted JSON path
// below the request root, to a readable message.
func ParseValidationError(err error) map[string]string {
	errMap := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errMap["body"] = "Invalid request body format. Please fix your payload."
		return errMap
	}

	for _, e := range validationErrors {
		ns := e.Namespace()
		if i := strings.Index(ns, "."); i != -1 {
			ns = ns[i+1:]
		}

		var msg string
		switch e.Tag() {
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s]", strings.ReplaceAll(e.Param(), " ", ", "))
		default:
			if trans != nil {
				msg = e.Translate(trans)
			} else {
				msg = e.Error()
			}
		}
		errMap[ns] = msg
	}
	return errMap
}
