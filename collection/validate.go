package collection

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

// ErrorKind classifies a rejected request.
type ErrorKind string

const (
	InvalidJSON  ErrorKind = "InvalidJSON"
	MissingField ErrorKind = "MissingField"
	InvalidType  ErrorKind = "InvalidType"
)

// Messages reported to clients for each rejection kind.
const (
	MsgInvalidJSON  = "invalid JSON format"
	MsgMissingField = "missing required parameters"
	MsgInvalidType  = "invalid data type"
)

// RequestError is returned when a request fails validation. No I/O has
// happened when one of these is produced.
type RequestError struct {
	Kind    ErrorKind
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func newRequestError(kind ErrorKind) *RequestError {
	switch kind {
	case InvalidJSON:
		return &RequestError{Kind: kind, Message: MsgInvalidJSON}
	case MissingField:
		return &RequestError{Kind: kind, Message: MsgMissingField}
	default:
		return &RequestError{Kind: InvalidType, Message: MsgInvalidType}
	}
}

// KindOf returns the kind of a *RequestError, or "" for any other error.
func KindOf(err error) ErrorKind {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// SaveRequest is a validated save-data body. Data is kept verbatim.
type SaveRequest struct {
	Type Name            `json:"type" validate:"collection"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// Validator checks save and load requests against the collection whitelist.
// It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator with the "collection" tag registered.
func NewValidator() *Validator {
	v := validator.New()
	if err := v.RegisterValidation("collection", func(fl validator.FieldLevel) bool {
		return Valid(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// ParseSave decodes and validates a save-data request body. Checks run in a
// fixed order: JSON syntax, field presence, then the type whitelist.
func (v *Validator) ParseSave(body []byte) (SaveRequest, error) {
	if !json.Valid(body) {
		return SaveRequest{}, newRequestError(InvalidJSON)
	}

	// A body that is valid JSON but not an object has neither field.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return SaveRequest{}, newRequestError(MissingField)
	}
	rawType, hasType := fields["type"]
	data, hasData := fields["data"]
	if !hasType || !hasData {
		return SaveRequest{}, newRequestError(MissingField)
	}

	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return SaveRequest{}, newRequestError(InvalidType)
	}

	req := SaveRequest{Type: Name(typ), Data: data}
	if err := v.validate.Struct(req); err != nil {
		return SaveRequest{}, translate(err)
	}
	return req, nil
}

// ParseLoad validates the type segment of a load-data path. An empty
// segment selects All.
func (v *Validator) ParseLoad(segment string) (Name, error) {
	if segment == "" {
		return All, nil
	}
	if err := v.validate.Var(segment, "collection"); err != nil {
		return "", newRequestError(InvalidType)
	}
	return Name(segment), nil
}

func translate(err error) *RequestError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return newRequestError(MissingField)
			}
		}
	}
	return newRequestError(InvalidType)
}
