package domain

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type CardType string

const (
	Visa       CardType = "VISA"
	Mastercard CardType = "MASTERCARD"
	Unknown    CardType = "UNKNOWN"
)

var (
	visaRegex   = regexp.MustCompile(`^4[0-9]{12}(?:[0-9]{3})?$`)
	masterRegex = regexp.MustCompile(`^5[1-5][0-9]{14}$`)
)

// Card binds a customer to exactly one account. The binding never changes.
type Card struct {
	ID     uuid.UUID
	Number string // masked, empty for anonymous vending cards
	Brand  CardType

	account *Account
}

// NewCard panics on a nil account: no business case produces one.
func NewCard(account *Account) *Card {
	if account == nil {
		panic("domain: card requires an account")
	}
	return &Card{ID: uuid.New(), Brand: Unknown, account: account}
}

// NewNumberedCard validates and masks a card number before binding it.
func NewNumberedCard(account *Account, number string) (*Card, error) {
	valid, brand := ValidateCardNumber(number)
	if !valid {
		return nil, ErrInvalidCardNumber
	}
	c := NewCard(account)
	c.Number = MaskCardNumber(number)
	c.Brand = brand
	return c, nil
}

func (c *Card) Account() *Account {
	return c.account
}

// ValidateCardNumber checks the Luhn digit and accepts Visa and Mastercard.
func ValidateCardNumber(number string) (bool, CardType) {
	cleanNum := cleanCardNumber(number)

	if cleanNum == "" || !passesLuhn(cleanNum) {
		return false, Unknown
	}
	if visaRegex.MatchString(cleanNum) {
		return true, Visa
	}
	if masterRegex.MatchString(cleanNum) {
		return true, Mastercard
	}
	return false, Unknown
}

// MaskCardNumber keeps the last four digits.
func MaskCardNumber(number string) string {
	cleanNum := cleanCardNumber(number)
	if len(cleanNum) <= 4 {
		return cleanNum
	}
	return strings.Repeat("*", len(cleanNum)-4) + cleanNum[len(cleanNum)-4:]
}

func cleanCardNumber(number string) string {
	cleanNum := strings.ReplaceAll(number, " ", "")
	return strings.ReplaceAll(cleanNum, "-", "")
}

// passesLuhn implements the standard Mod 10 check used by all banks
func passesLuhn(number string) bool {
	sum := 0
	alternate := false
	for i := len(number) - 1; i >= 0; i-- {
		n, err := strconv.Atoi(string(number[i]))
		if err != nil {
			return false
		}
		if alternate {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
