package payment

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	upiPattern    = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	cvvPattern    = regexp.MustCompile(`^[0-9]{3,}$`)
)

const minCardDigits = 13

// messages is keyed by "<field>.<tag>"; the first failing rule wins.
var messages = map[string]string{
	"cardNumber.required":     "Card number is required",
	"cardNumber.cardnumber":   "Card number must be at least 13 digits",
	"cardholderName.required": "Cardholder name is required",
	"expiryDate.required":     "Expiry date is required",
	"expiryDate.expiry":       "Expiry date must be in MM/YY format",
	"cvv.required":            "CVV is required",
	"cvv.cvv":                 "CVV must be at least 3 digits",
	"upiId.required":          "UPI ID is required",
	"upiId.upiid":             "Please enter a valid UPI ID",
	"selectedBank.required":   "Please select a bank",
	"selectedBank.bank":       "Please select a bank",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	v.RegisterValidation("cardnumber", validateCardNumber)
	v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("cvv", func(fl validator.FieldLevel) bool {
		return cvvPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("upiid", func(fl validator.FieldLevel) bool {
		return upiPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("bank", func(fl validator.FieldLevel) bool {
		_, ok := bankURLs[Bank(fl.Field().String())]
		return ok
	})
	return v
}

// validateCardNumber ignores spaces and dashes and requires only digits.
func validateCardNumber(fl validator.FieldLevel) bool {
	digits := CardDigits(fl.Field().String())
	if len(digits) < minCardDigits {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// CardDigits strips the separators customers type into card numbers.
func CardDigits(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

// ValidUPIID reports whether id has the localpart@handle shape.
func ValidUPIID(id string) bool {
	return upiPattern.MatchString(id)
}

func validateDetails(details Details) error {
	err := validate.Struct(trimmed(details))
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	msg, ok := messages[first.Field()+"."+first.Tag()]
	if !ok {
		msg = first.Error()
	}
	return &InvalidDetailsError{Field: first.Field(), Message: msg}
}

// trimmed returns a copy of details with surrounding whitespace removed, so a
// blank entry fails the required rules.
func trimmed(details Details) Details {
	switch d := details.(type) {
	case *CardDetails:
		return trimmed(*d)
	case *UPIDetails:
		return trimmed(*d)
	case *NetBankingDetails:
		return trimmed(*d)
	case CardDetails:
		d.Number = strings.TrimSpace(d.Number)
		d.Holder = strings.TrimSpace(d.Holder)
		d.Expiry = strings.TrimSpace(d.Expiry)
		d.CVV = strings.TrimSpace(d.CVV)
		return d
	case UPIDetails:
		d.UPIID = strings.TrimSpace(d.UPIID)
		return d
	case NetBankingDetails:
		d.Bank = strings.TrimSpace(d.Bank)
		return d
	}
	return details
}
