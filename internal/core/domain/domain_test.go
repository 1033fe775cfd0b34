package domain

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_RepeatedDebitsDoNotDrift(t *testing.T) {
	balance := MustMoney("5.00")
	for i := 0; i < 10; i++ {
		balance = balance.Sub(MustMoney("0.10"))
	}
	assert.Equal(t, "4.00", balance.String())
	assert.True(t, balance.Equal(FromCents(400)))
}

func TestMoney_Times(t *testing.T) {
	assert.Equal(t, "1.50", MustMoney("0.50").Times(3).String())
}

func TestNewMoney_Invalid(t *testing.T) {
	_, err := NewMoney("five")
	assert.Error(t, err)
}

func TestNewMoney_RejectsSubCentAmounts(t *testing.T) {
	for _, v := range []string{"0.495", "1.001", "-0.005"} {
		_, err := NewMoney(v)
		assert.ErrorIs(t, err, ErrInvalidInput, v)
	}

	m, err := NewMoney("0.500")
	require.NoError(t, err)
	assert.Equal(t, "0.50", m.String())
}

func TestMoney_UnmarshalRejectsSubCentAmounts(t *testing.T) {
	var m Money
	assert.ErrorIs(t, json.Unmarshal([]byte(`"0.495"`), &m), ErrInvalidInput)
	assert.ErrorIs(t, json.Unmarshal([]byte(`0.495`), &m), ErrInvalidInput)
	assert.True(t, m.Equal(Zero))
}

func TestMoney_JSON(t *testing.T) {
	b, err := json.Marshal(MustMoney("4.5"))
	require.NoError(t, err)
	assert.JSONEq(t, `"4.50"`, string(b))

	var quoted, bare Money
	require.NoError(t, json.Unmarshal([]byte(`"0.49"`), &quoted))
	require.NoError(t, json.Unmarshal([]byte(`0.49`), &bare))
	assert.True(t, quoted.Equal(bare))
}

func TestAccount_LoadNewBalanceReplaces(t *testing.T) {
	a := NewAccount(MustMoney("5.00"))
	a.LoadNewBalance(MustMoney("-1.25"))
	assert.Equal(t, "-1.25", a.Balance().String())
}

func TestAccount_ConcurrentDebitsAreNotLost(t *testing.T) {
	a := NewAccount(MustMoney("100.00"))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Debit(MustMoney("0.25"))
		}()
	}
	wg.Wait()

	assert.Equal(t, "75.00", a.Balance().String())
}

func TestNewCard_BindsAccount(t *testing.T) {
	a := NewAccount(Zero)
	c := NewCard(a)
	assert.Same(t, a, c.Account())
	assert.Panics(t, func() { NewCard(nil) })
}

func TestValidateCardNumber(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
		brand  CardType
	}{
		{"4111 1111 1111 1111", true, Visa},
		{"5555-5555-5555-4444", true, Mastercard},
		{"4111111111111112", false, Unknown},
		{"378282246310005", false, Unknown}, // Amex passes Luhn but is not accepted
		{"4111abcd11111111", false, Unknown},
		{"", false, Unknown},
	}

	for _, tt := range tests {
		valid, brand := ValidateCardNumber(tt.number)
		assert.Equal(t, tt.valid, valid, tt.number)
		assert.Equal(t, tt.brand, brand, tt.number)
	}
}

func TestNewNumberedCard(t *testing.T) {
	c, err := NewNumberedCard(NewAccount(Zero), "4111 1111 1111 1111")
	require.NoError(t, err)
	assert.Equal(t, "************1111", c.Number)
	assert.Equal(t, Visa, c.Brand)

	_, err = NewNumberedCard(NewAccount(Zero), "1234")
	assert.ErrorIs(t, err, ErrInvalidCardNumber)
}
