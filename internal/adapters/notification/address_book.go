package notification

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrNoAddress は宛先を解決できない場合に返されます。
var ErrNoAddress = errors.New("notification: recipient address cannot be resolved")

// AddressBook は通知の宛先 (ユーザー名またはメールアドレス) をメールアドレスに解決します。
type AddressBook struct {
	defaultDomain string
}

// NewAddressBook は AddressBook を生成します。defaultDomain はユーザー名だけの宛先に付与されます。
func NewAddressBook(defaultDomain string) *AddressBook {
	return &AddressBook{defaultDomain: strings.TrimPrefix(strings.TrimSpace(defaultDomain), "@")}
}

// Resolve は recipient をメールアドレスに変換します。
func (b *AddressBook) Resolve(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", ErrNoAddress
	}

	if !strings.Contains(recipient, "@") {
		if b == nil || b.defaultDomain == "" {
			return "", fmt.Errorf("%w: %q has no domain", ErrNoAddress, recipient)
		}
		recipient = recipient + "@" + b.defaultDomain
	}

	addr, err := mail.ParseAddress(recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoAddress, err)
	}
	return addr.Address, nil
}
