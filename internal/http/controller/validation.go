package controller

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/iyhunko/product-catalog/internal/model"
)

var registerOnce sync.Once

// RegisterValidators installs the catalog rules on gin's validator and makes
// validation errors report JSON field names.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	var err error
	registerOnce.Do(func() {
		v.RegisterTagNameFunc(jsonFieldName)
		err = v.RegisterValidation("metal_type", metalType)
	})
	return err
}

func metalType(fl validator.FieldLevel) bool {
	return model.MetalType(fl.Field().String()).Valid()
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath turns "CreateProductRequest.variants[0].sku" into "variants[0].sku".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}
