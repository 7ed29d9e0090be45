package oneshot

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reglet-dev/oneshot/domain/entities"
	"github.com/reglet-dev/oneshot/domain/errors"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig checks cfg against its validation tags and the hostname
// rules. The first offending field is named in the returned *errors.ConfigError.
func ValidateConfig(cfg *entities.Config) error {
	if cfg == nil {
		return &errors.ConfigError{Err: fmt.Errorf("config is nil")}
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if stdErrors.As(err, &verrs) && len(verrs) > 0 {
			return &errors.ConfigError{Field: fieldPath(verrs[0]), Err: err}
		}
		return &errors.ConfigError{Err: err}
	}

	if _, err := entities.NormalizeHostname(cfg.Hostname); err != nil {
		return &errors.ConfigError{Field: "hostname", Err: err}
	}
	return nil
}

// fieldPath drops the root struct name: "Config.poll.resolve" becomes "poll.resolve".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
