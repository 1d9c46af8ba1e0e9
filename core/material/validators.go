package material

import (
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/chihwayi/ecd-materials-generator-sub003/core"
)

var (
	ageGroupTag  = "agegroup"
	ageGroupText = fmt.Sprintf("must be one of %s", strings.Join(AgeGroups, ", "))
)

// InitValidators registers the material validators. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(ageGroupTag, ageGroupValidation)
	core.RegisterCustomTranslation(validate, translator, ageGroupTag, ageGroupText)
}

// ageGroupValidation checks that the age group is one of AgeGroups.
func ageGroupValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, ag := range AgeGroups {
		if val == ag {
			return true
		}
	}
	return false
}
