package handler

import (
	"github.com/ayo6706/custody-ledger/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ValidAmount accepts base-unit integer strings, zero included.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := domain.ParseAmount(s)
	return err == nil
}

// ValidReceivePath accepts the two bare-receive entry points.
var ValidReceivePath validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch domain.ReceivePath(s) {
	case domain.ReceivePathFallback, domain.ReceivePathReceive:
		return true
	}
	return false
}

// NewValidator returns a validator with the ledger's custom tags registered.
func NewValidator() (*validator.Validate, error) {
	v := validator.New()
	if err := v.RegisterValidation("amount", ValidAmount); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("receive_path", ValidReceivePath); err != nil {
		return nil, err
	}
	return v, nil
}
