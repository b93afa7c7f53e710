package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/dairyline/milk-distributor/internal/apperr"
	"github.com/dairyline/milk-distributor/internal/date"
)

type createOrderRequest struct {
	Quantity *float64 `json:"quantity" validate:"required,gt=0,lte=9999999.99"`
	Address  string   `json:"address" validate:"required"`
}

type updateCapacityRequest struct {
	QuantityLeft *float64 `json:"quantityLeft" validate:"omitnil,gte=0,lte=9999999.99"`
	UnitPrice    *float64 `json:"unitPrice" validate:"omitnil,gte=1,lte=99999.99"`
	MaxCapacity  *float64 `json:"maxCapacity"`
}

type updateOrderRequest struct {
	Address  *string  `json:"address"`
	Status   *string  `json:"status"`
	Quantity *float64 `json:"quantity"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

const maxRequestBytes = 1 << 20

var (
	errInvalidBody  = apperr.InvalidArgument("Invalid request body")
	errBodyTooLarge = apperr.TooLarge("Request body too large")
)

// decodeBody reads at most maxRequestBytes of JSON into dst and runs struct
// validation on it.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return errInvalidBody
	}

	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperr.InvalidArgument("Invalid input data. " + describeValidation(verrs))
		}
		return fmt.Errorf("failed to validate request: %w", err)
	}
	return nil
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, ". ")
}

func pathDate(r *http.Request) (date.Date, error) {
	return parseDate(mux.Vars(r)["date"])
}

func parseDate(raw string) (date.Date, error) {
	d, err := date.Parse(raw)
	if err != nil {
		return date.Date{}, apperr.InvalidArgument("Invalid date, expected DD-MM-YYYY")
	}
	return d, nil
}

func decimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
