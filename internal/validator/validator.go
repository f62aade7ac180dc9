package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/adaptive-assessment/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator combines struct tag validation with item business rules
type Validator struct {
	structValidator *validator.Validate
	itemValidator   *ItemValidator
}

func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		itemValidator:   NewItemValidator(),
	}
}

// ValidateStruct validates struct tags only and converts failures to
// ValidationErrors
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		return structErrors(err)
	}
	return nil
}

// Validate performs struct validation, then item rules when s is an item
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		return err
	}

	var item *models.Item
	switch value := s.(type) {
	case *models.Item:
		item = value
	case models.Item:
		item = &value
	}
	if item != nil {
		if errs := v.itemValidator.Validate(item); len(errs) > 0 {
			return errs
		}
	}
	return nil
}

func (v *Validator) Item() *ItemValidator {
	return v.itemValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("item_type", validateItemType)
	validate.RegisterValidation("test_type", validateTestType)
	validate.RegisterValidation("language_skill", validateLanguageSkill)

	// Report JSON field names in errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateItemType(fl validator.FieldLevel) bool {
	return models.ItemType(fl.Field().String()).Valid()
}

func validateTestType(fl validator.FieldLevel) bool {
	return models.TestType(fl.Field().String()).Valid()
}

func validateLanguageSkill(fl validator.FieldLevel) bool {
	value := models.LanguageSkill(fl.Field().String())
	if value == "" {
		return true
	}
	for _, skill := range models.LanguageSkills {
		if value == skill {
			return true
		}
	}
	return false
}
