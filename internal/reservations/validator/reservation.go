package validator

import (
	"errors"
	"fmt"
	"reflect"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const validationFailedMessage = "reservation validation failed"

// ReservationValidator runs the structural checks (struct tags, guest list)
// and the interval rules, and reports all violations as one ValidationFailed.
// Date violations always come first.
type ReservationValidator struct {
	validate *validator.Validate
	rules    IntervalRules
	logger   *logger.Logger
}

func NewReservationValidator(rules IntervalRules, log *logger.Logger) *ReservationValidator {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	log.Info("Reservation validator initialized successfully",
		"min_lead_time", rules.MinLeadTime,
		"min_stay", rules.MinStay,
	)

	return &ReservationValidator{
		validate: v,
		rules:    rules,
		logger:   log,
	}
}

func (v *ReservationValidator) ValidateCreate(input *model.ReservationInput, now time.Time) error {
	violations := v.intervalViolations(input.CheckIn, input.CheckOut, now)
	violations = append(violations, v.structViolations(input, "Guests")...)
	violations = append(violations, v.guestViolations(input.Guests)...)

	return failed(violations)
}

// ValidateUpdate checks the patch itself: at least one field, and check_in
// with check_out supplied together.
func (v *ReservationValidator) ValidateUpdate(update *model.ReservationUpdate) error {
	if update.IsEmpty() {
		return failed([]string{"at least one of unit_label, check_in, check_out, guest_count must be provided"})
	}

	var violations []string
	if (update.CheckIn == nil) != (update.CheckOut == nil) {
		violations = append(violations, "check_in and check_out must be updated together")
	}
	if update.UnitLabel != nil && strings.TrimSpace(*update.UnitLabel) == "" {
		violations = append(violations, "unit_label cannot be empty")
	}
	violations = append(violations, v.structViolations(update)...)

	return failed(violations)
}

// ValidateReservation checks a reservation after an update was merged into it.
func (v *ReservationValidator) ValidateReservation(r *model.Reservation, now time.Time) error {
	violations := v.intervalViolations(r.CheckIn, r.CheckOut, now)
	violations = append(violations, v.structViolations(r, "Guests")...)

	return failed(violations)
}

func (v *ReservationValidator) intervalViolations(checkIn, checkOut, now time.Time) []string {
	// Missing dates are reported by the struct tags.
	if checkIn.IsZero() || checkOut.IsZero() {
		return nil
	}
	return v.rules.Validate(checkIn, checkOut, now)
}

func (v *ReservationValidator) structViolations(s any, except ...string) []string {
	var err error
	if len(except) > 0 {
		err = v.validate.StructExcept(s, except...)
	} else {
		err = v.validate.Struct(s)
	}
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return translateValidationErrors(validationErrs)
	}
	v.logger.Error("Unexpected validator failure", "error", err)
	return []string{err.Error()}
}

func (v *ReservationValidator) guestViolations(guests []model.GuestInput) []string {
	if len(guests) == 0 {
		return []string{"guests must be provided"}
	}

	var violations []string
	for i, g := range guests {
		if err := v.validate.Var(g.Name, "required,max=120"); err != nil {
			violations = append(violations, fmt.Sprintf("guest #%d name is required and must be at most 120 characters", i+1))
		}
		if err := v.validate.Var(g.Email, "required,email"); err != nil {
			violations = append(violations, fmt.Sprintf("guest (%s) email is not valid", g.Name))
		}
	}
	return violations
}

func failed(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return apperrors.ValidationFailed(validationFailedMessage, violations)
}

func translateValidationErrors(errs validator.ValidationErrors) []string {
	messages := make([]string, 0, len(errs))

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		}

		messages = append(messages, message)
	}

	return messages
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
