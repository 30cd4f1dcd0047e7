package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/sellsync/backend/internal/domain/order"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("order_status", validOrderStatus)
	}
}

// validOrderStatus accepts only canonical order statuses
func validOrderStatus(fl validator.FieldLevel) bool {
	return order.Status(fl.Field().String()).IsValid()
}
