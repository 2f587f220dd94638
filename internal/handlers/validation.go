package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// RegisterValidators installs the custom tags used by request bodies on
// gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("decimalgte1", decimalGTE1); err != nil {
		return err
	}
	if err := v.RegisterValidation("nonnegdecimal", nonNegativeDecimal); err != nil {
		return err
	}
	v.RegisterStructValidation(budgetRange, createTaskRequest{}, updateTaskRequest{})
	return nil
}

func decimalGTE1(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(decimal.Decimal)
	return ok && d.GreaterThanOrEqual(one)
}

func nonNegativeDecimal(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(decimal.Decimal)
	return ok && !d.IsNegative()
}

// budgetRange rejects a minimum above the maximum when both are given.
func budgetRange(sl validator.StructLevel) {
	var lo, hi *decimal.Decimal
	switch r := sl.Current().Interface().(type) {
	case createTaskRequest:
		lo, hi = r.BudgetMin, r.BudgetMax
	case updateTaskRequest:
		lo, hi = r.BudgetMin, r.BudgetMax
	}
	if lo != nil && hi != nil && lo.GreaterThan(*hi) {
		sl.ReportError(lo, "BudgetMin", "budget_min", "budgetrange", "")
	}
}
