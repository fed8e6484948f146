package main

import (
	"fmt"
	"regexp"

	"github.com/spf13/pflag"
)

var languagePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z]{2,4})?$`)

// Language is a language code such as en, ru or zh-CN. Empty means the
// configured default.
type Language string

var _ pflag.Value = (*Language)(nil)

func (l *Language) Set(val string) error {
	if !languagePattern.MatchString(val) {
		return fmt.Errorf("invalid language: %s", val)
	}
	*l = Language(val)
	return nil
}

func (l Language) String() string {
	return string(l)
}

func (l *Language) Type() string {
	return "language"
}
