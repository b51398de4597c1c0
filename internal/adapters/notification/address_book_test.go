package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressBook_Resolve(t *testing.T) {
	t.Parallel()

	book := NewAddressBook("@example.com")

	addr, err := book.Resolve("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", addr)

	addr, err = book.Resolve(" bob@corp.example ")
	require.NoError(t, err)
	assert.Equal(t, "bob@corp.example", addr)

	_, err = book.Resolve("  ")
	assert.ErrorIs(t, err, ErrNoAddress)

	_, err = book.Resolve("broken@")
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestAddressBook_NoDefaultDomain(t *testing.T) {
	t.Parallel()

	_, err := NewAddressBook("").Resolve("alice")
	assert.ErrorIs(t, err, ErrNoAddress)

	var book *AddressBook
	addr, err := book.Resolve("carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", addr)
}
