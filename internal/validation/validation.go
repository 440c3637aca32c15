// Package validation は入力構造体のフィールド検証を提供する。
// 失敗したフィールドは最初の1件で打ち切らず、全件をmodel.FieldErrorとして列挙する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/notekeeper/internal/model"
)

// Validator はgo-playground/validatorのラッパー。並行利用に安全。
type Validator struct {
	validate *validator.Validate
}

// New はJSONタグ名をフィールド名として報告するValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// RegisterValidationは組み込みタグと重複しない限り失敗しない
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return &Validator{validate: v}
}

// maxBytes は文字列のバイト長がパラメータ以下であることを検証する。
// 組み込みのmaxはルーン数で数える。
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Struct はsの検証タグを評価する。
// 失敗時は全ての失敗フィールドを含むKindValidationのmodel.APIErrorを返す。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	fields := make([]model.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, model.FieldError{
			Field:   fe.Field(),
			Message: fieldMessage(fe),
		})
	}
	return model.NewValidationError(fields)
}

// Field は単一の値をtagで検証し、失敗時はfieldを名前に持つ検証エラーを返す。
func (v *Validator) Field(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("failed to validate %s: %w", field, err)
	}
	fe := verrs[0]
	return model.NewValidationError([]model.FieldError{{
		Field:   field,
		Message: messageFor(field, fe.Tag(), fe.Param()),
	}})
}

func fieldMessage(fe validator.FieldError) string {
	return messageFor(fe.Field(), fe.Tag(), fe.Param())
}

func messageFor(field, tag, param string) string {
	name := label(field)
	switch tag {
	case "required":
		return name + " is required"
	case "email":
		return "Please enter a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", name, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", name, param)
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes long", name, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(param, " ", ", "))
	case "hexcolor":
		return name + " must be a hex color"
	default:
		return name + " is invalid"
	}
}

// label はフィールド名の先頭を大文字にしてメッセージ用の表記にする。
func label(field string) string {
	if field == "" {
		return "Value"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
