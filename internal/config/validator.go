package config

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var placeholderPattern = regexp.MustCompile(`\{[a-zA-Z]+\}`)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("urltemplate", isURLTemplate); err != nil {
		return nil, nil, fmt.Errorf("failed to register urltemplate validation: %w", err)
	}
	if err := validate.RegisterTranslation("urltemplate", trans, func(ut ut.Translator) error {
		return ut.Add("urltemplate", "{0} must be an http(s) URL template", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("urltemplate", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register urltemplate translation: %w", err)
	}

	return validate, trans, nil
}

// isURLTemplate reports whether the value is an absolute http(s) URL once
// every {placeholder} is filled in.
func isURLTemplate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}

	u, err := url.Parse(placeholderPattern.ReplaceAllString(value, "x"))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
