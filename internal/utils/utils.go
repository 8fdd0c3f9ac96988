package utils

import (
	"crypto/rand"
	"math/big"
	"net/http"
	"net/mail"
	"regexp"
	"strconv"
	"time"

	"github.com/evoting-dev/evoting/internal/errors"
)

// Local 10-digit mobile format, same rule as the registration form.
var phoneRegex = regexp.MustCompile(`^[6-9]\d{9}$`)

func ValidatePhoneNumber(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return &errors.ErrorWithStatusCode{Message: "Please enter a valid 10-digit phone number", StatusCode: http.StatusBadRequest}
	}
	return nil
}

func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return &errors.ErrorWithStatusCode{Message: err.Error(), StatusCode: http.StatusBadRequest}
	}
	return nil
}

// Age computes full calendar years between birthDate and now,
// accounting for whether the birthday has passed this year.
func Age(birthDate, now time.Time) int {
	age := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	return age
}

// GenerateOTP returns a 6-digit one-time code in [100000, 999999].
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand failing means the platform entropy source is broken
		panic(err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10)
}
