package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

const (
	msgMissingField = "Missing data for required field."
	msgNullField    = "Field may not be null."
	msgNotString    = "Not a valid string."
	msgBadEmail     = "Not a valid email address."
	msgUnknownField = "Unknown field."
)

var (
	errNoInput      = errors.New("no input data provided")
	errInvalidJSON  = errors.New("invalid json body")
	errBodyTooLarge = errors.New("request body too large")
)

// CreateUserRequest is the payload accepted by POST /users.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"min=1"`
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=6,maxbytes=72"`
}

// UpdateUserRequest is the payload accepted by PUT /user/{id}.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"min=1"`
	Email string `json:"email" validate:"email"`
}

// LoginRequest is the payload accepted by POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=1"`
}

// ValidationErrors maps a payload field to every problem found with it.
type ValidationErrors map[string][]string

func (v ValidationErrors) add(field, message string) {
	v[field] = append(v[field], message)
}

// RequestValidator decodes JSON object bodies into request structs. Every
// field in the struct is required and must be a JSON string; keys the struct
// does not declare are rejected.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return &RequestValidator{validate: v}
}

// Decode fills dst from r's body. A non-nil ValidationErrors means the payload
// was well-formed JSON but failed field checks; err reports body-level problems.
func (rv *RequestValidator) Decode(r *http.Request, dst any) (ValidationErrors, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errBodyTooLarge
		}
		return nil, errInvalidJSON
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, errNoInput
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errInvalidJSON
	}
	if len(raw) == 0 {
		return nil, errNoInput
	}

	fields := structFields(dst)
	errs := ValidationErrors{}

	for key := range raw {
		if !slices.Contains(fields, key) {
			errs.add(key, msgUnknownField)
		}
	}

	for _, name := range fields {
		value, ok := raw[name]
		switch {
		case !ok:
			errs.add(name, msgMissingField)
		case bytes.Equal(bytes.TrimSpace(value), []byte("null")):
			errs.add(name, msgNullField)
		default:
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				errs.add(name, msgNotString)
			}
		}
	}

	// Type mismatches were reported above; the rest of dst is still filled.
	_ = json.Unmarshal(body, dst)

	if err := rv.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		for _, fe := range fieldErrs {
			if _, reported := errs[fe.Field()]; reported {
				continue
			}
			errs.add(fe.Field(), fieldMessage(fe))
		}
	}

	if len(errs) > 0 {
		return errs, nil
	}
	return nil, nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return msgBadEmail
	case "min":
		return fmt.Sprintf("Shorter than minimum length %s.", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("Longer than maximum length %s bytes.", fe.Param())
	default:
		return "Invalid value."
	}
}

// maxBytes checks a string's encoded length; the built-in max tag counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func structFields(dst any) []string {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonFieldName(t.Field(i)); name != "" {
			fields = append(fields, name)
		}
	}
	return fields
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}
