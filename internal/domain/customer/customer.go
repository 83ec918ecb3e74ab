package customer

import (
	"regexp"
	"time"

	"github.com/go-faster/errors"
)

// WalkInID is the fixed user every anonymous point-of-sale order is attributed
// to. It is seeded by cmd/seed-db and must exist before the API serves traffic.
const WalkInID int64 = 1

var (
	// ErrNotFound is returned when a referenced user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidPhone is returned when a phone number fails format validation.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrInvalidName is returned when a customer name fails format validation.
	ErrInvalidName = errors.New("invalid customer name")
)

// Customer is a storefront user. POS guest users carry only a name and phone.
type Customer struct {
	ID        int64
	Name      string
	Phone     string
	CreatedAt time.Time
}

var (
	phoneRe = regexp.MustCompile(`^\+?[0-9]{10,14}$`)
	nameRe  = regexp.MustCompile(`^[\p{L}][\p{L} .'-]{0,98}$`)
)

// ValidPhone reports whether phone is an acceptable subscriber number:
// 10 to 14 digits with an optional leading plus.
func ValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// ValidName reports whether name is a plausible person name: letters with
// spaces and common punctuation, at most 99 characters.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}
