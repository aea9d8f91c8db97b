package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxShoutoutLength is the longest accepted shoutout message, in characters.
const MaxShoutoutLength = 500

var birthdayPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])-(0[1-9]|[12][0-9]|3[01])$`)

func init() {
	_ = validate.RegisterValidation("birthday", func(fl validator.FieldLevel) bool {
		return birthdayPattern.MatchString(fl.Field().String())
	})
	// Report JSON field names so messages match what the admin UI posted.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// FormError is a validation failure with a message safe to show the admin.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string { return e.Message }

// formError converts a validator error into a FormError naming the first
// failing field.
func formError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return &FormError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	case "email":
		return &FormError{Field: field, Message: "Please enter a valid email address"}
	case "birthday":
		return &FormError{Field: field, Message: "Birthday must be in MM-DD format"}
	case "max":
		return &FormError{Field: field, Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	case "gte":
		return &FormError{Field: field, Message: fmt.Sprintf("%s must not be negative", field)}
	default:
		return &FormError{Field: field, Message: fmt.Sprintf("%s is invalid", field)}
	}
}

// ─── GOAL FORM ────────────────────────────────────────────────────────────────

// GoalForm is the admin goal form body.
type GoalForm struct {
	SalesRevenue     string `json:"salesRevenue" validate:"required"`
	SalesCount       int    `json:"salesCount" validate:"gte=0"`
	EstimatesCreated int    `json:"estimatesCreated" validate:"gte=0"`
	NewCustomers     int    `json:"newCustomers" validate:"gte=0"`
}

// Goal validates the form and returns the goal for period.
func (f GoalForm) Goal(period PeriodType) (Goal, error) {
	if !period.Valid() {
		return Goal{}, &FormError{Field: "periodType", Message: "Period must be MONTHLY or ANNUAL"}
	}
	if err := validate.Struct(f); err != nil {
		return Goal{}, formError(err)
	}
	revenue, err := decimal.NewFromString(strings.TrimSpace(f.SalesRevenue))
	if err != nil {
		return Goal{}, &FormError{Field: "salesRevenue", Message: "Sales revenue must be a number"}
	}
	if revenue.IsNegative() {
		return Goal{}, &FormError{Field: "salesRevenue", Message: "Sales revenue must not be negative"}
	}
	return Goal{
		PeriodType:       period,
		SalesRevenue:     revenue,
		SalesCount:       f.SalesCount,
		EstimatesCreated: f.EstimatesCreated,
		NewCustomers:     f.NewCustomers,
	}, nil
}

// ─── RECIPIENT FORM ───────────────────────────────────────────────────────────

// RecipientForm is the admin create/update recipient body.
type RecipientForm struct {
	Name           string `json:"name" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Active         *bool  `json:"active"`
	Birthday       string `json:"birthday" validate:"omitempty,birthday"`
	OptOutDigest   bool   `json:"optOutDigest"`
	OptOutBirthday bool   `json:"optOutBirthday"`
}

// Recipient validates and normalises the form. The email is lower-cased so
// uniqueness is case-insensitive.
func (f RecipientForm) Recipient() (Recipient, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Birthday = strings.TrimSpace(f.Birthday)
	if err := validate.Struct(f); err != nil {
		return Recipient{}, formError(err)
	}

	r := Recipient{
		Name:           f.Name,
		Email:          f.Email,
		Active:         true,
		OptOutDigest:   f.OptOutDigest,
		OptOutBirthday: f.OptOutBirthday,
	}
	if f.Active != nil {
		r.Active = *f.Active
	}
	if f.Birthday != "" {
		b := f.Birthday
		r.Birthday = &b
	}
	return r, nil
}

// ─── SHOUTOUT FORM ────────────────────────────────────────────────────────────

// ShoutoutForm is the public shoutout submission body.
type ShoutoutForm struct {
	RecipientID string `json:"recipientId" validate:"required,uuid"`
	Message     string `json:"message" validate:"required,max=500"`
}

// Parse validates the form and returns the owning recipient id and the
// trimmed message.
func (f ShoutoutForm) Parse() (uuid.UUID, string, error) {
	f.Message = strings.TrimSpace(f.Message)
	f.RecipientID = strings.TrimSpace(f.RecipientID)
	if err := validate.Struct(f); err != nil {
		return uuid.Nil, "", formError(err)
	}
	id, err := uuid.Parse(f.RecipientID)
	if err != nil {
		return uuid.Nil, "", &FormError{Field: "recipientId", Message: "Unknown team member"}
	}
	return id, f.Message, nil
}
