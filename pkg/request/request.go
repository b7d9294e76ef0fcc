package request

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/uvgride/grouprides/pkg/response"
)

const maxBodySize = 1048576 // 1MB

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ReadJSON reads JSON from the request body into dst
func ReadJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return errors.New("malformed JSON")
		case errors.As(err, &unmarshalTypeError):
			return errors.New("invalid JSON type for field " + unmarshalTypeError.Field)
		case errors.As(err, &maxBytesError):
			return errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("malformed JSON")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return errors.New("unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return err
		}
	}

	if decoder.More() {
		return errors.New("body must contain only a single JSON value")
	}

	return nil
}

// ReadAndValidate reads JSON and validates it using struct tags
func ReadAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := ReadJSON(w, r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

// Validate validates a struct using validation tags
func Validate(dst interface{}) error {
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			details := make([]response.ErrorDetail, 0, len(validationErrors))
			for _, fe := range validationErrors {
				details = append(details, response.ErrorDetail{
					Field:   fe.Field(),
					Message: getValidationMessage(fe),
					Code:    fe.Tag(),
				})
			}
			return &ValidationError{Details: details}
		}
		return err
	}
	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Details []response.ErrorDetail
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// HandleError writes the response for a decoding or validation error.
// Returns true if err was handled.
func HandleError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		response.ValidationError(w, valErr.Details)
		return true
	}

	response.BadRequest(w, err.Error())
	return true
}

func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "gt":
		return "Value must be greater than " + fe.Param()
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	case "lte":
		return "Value must be less than or equal to " + fe.Param()
	case "oneof":
		return "Value must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}
