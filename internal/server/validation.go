package server

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	wordPattern = regexp.MustCompile(`^[a-zA-Z -]+$`)

	translator ut.Translator
	setupOnce  sync.Once
	setupErr   error
)

// setupValidation registers English messages and the custom rules on gin's
// validator. It runs once per process.
func setupValidation() error {
	setupOnce.Do(func() {
		validate, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		translator, _ = uni.GetTranslator("en")
		if setupErr = enTranslations.RegisterDefaultTranslations(validate, translator); setupErr != nil {
			return
		}

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"form", "json"} {
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

		if setupErr = validate.RegisterValidation("word", func(fl validator.FieldLevel) bool {
			return wordPattern.MatchString(fl.Field().String())
		}); setupErr != nil {
			return
		}
		setupErr = validate.RegisterTranslation("word", translator, func(ut ut.Translator) error {
			return ut.Add("word", "{0} contains wrong symbols", true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("word", fe.Field())
			return t
		})
	})
	return setupErr
}
