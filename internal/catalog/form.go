package catalog

import (
	"math"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

const (
	MsgFillAllFields = "Please fill in all fields"
	MsgInvalidPrice  = "Please enter a valid price"
	MsgInvalidStatus = "Please select a valid status"
)

var validate = validator.New()

// ProductForm holds the raw text of the add-product form.
type ProductForm struct {
	Title  string `json:"title" validate:"required"`
	SKU    string `json:"sku" validate:"required"`
	Price  string `json:"price" validate:"required"`
	Status string `json:"status"`
}

// FormError is a validation failure with the message shown to the user. Form
// keeps what was submitted so it can be shown again.
type FormError struct {
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
	Form    ProductForm `json:"form"`
}

func (e *FormError) Error() string { return e.Message }

// EmptyForm is the form state after a successful submission.
func EmptyForm() ProductForm {
	return ProductForm{Status: string(StatusActive)}
}

// FormFromValues builds a form from a decoded JSON object. Non-string values
// are rendered as text, so {"price": 9.99} and {"price": "9.99"} are the same.
func FormFromValues(values map[string]any) ProductForm {
	return ProductForm{
		Title:  cast.ToString(values["title"]),
		SKU:    cast.ToString(values["sku"]),
		Price:  cast.ToString(values["price"]),
		Status: cast.ToString(values["status"]),
	}
}

func FormFromURLValues(values url.Values) ProductForm {
	return ProductForm{
		Title:  values.Get("title"),
		SKU:    values.Get("sku"),
		Price:  values.Get("price"),
		Status: values.Get("status"),
	}
}

// Parse checks the form and converts it. The first failing rule wins.
func (f ProductForm) Parse() (NewProduct, error) {
	if err := validate.Struct(f); err != nil {
		field := ""
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			field = strings.ToLower(verrs[0].Field())
		}
		return NewProduct{}, &FormError{Message: MsgFillAllFields, Field: field, Form: f}
	}

	price, err := cast.ToFloat64E(strings.TrimSpace(f.Price))
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return NewProduct{}, &FormError{Message: MsgInvalidPrice, Field: "price", Form: f}
	}

	status := Status(f.Status)
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return NewProduct{}, &FormError{Message: MsgInvalidStatus, Field: "status", Form: f}
	}

	return NewProduct{Title: f.Title, SKU: f.SKU, Price: price, Status: status}, nil
}
