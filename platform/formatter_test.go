package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyFormatter(t *testing.T) {
	f, err := NewCurrencyFormatter("usd", "")
	require.NoError(t, err)
	assert.Equal(t, "USD", f.Currency())
	assert.Contains(t, f.Format(12.5), "12.5")

	eur, err := NewCurrencyFormatter("EUR", "de-DE")
	require.NoError(t, err)
	assert.Equal(t, "EUR", eur.Currency())

	_, err = NewCurrencyFormatter("ZZZZ", "")
	assert.Error(t, err)

	_, err = NewCurrencyFormatter("USD", "not a locale!")
	assert.Error(t, err)
}
