package ledger

import (
	"context"
	"strings"
)

// DefaultEmailDomain is appended to a srcode to derive a student's address.
const DefaultEmailDomain = "g.batstate-u.edu.ph"

// Identity is the caller a ledger operation acts for.
type Identity struct {
	SRCode   string
	FullName string
	Type     string
}

// Directory owns student rows. It never opens its own transaction.
type Directory struct {
	emailDomain string
}

// NewDirectory creates a directory deriving addresses under domain.
func NewDirectory(domain string) *Directory {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	return &Directory{emailDomain: strings.TrimPrefix(domain, "@")}
}

// Email derives the address for srcode.
func (d *Directory) Email(srcode string) string {
	return srcode + "@" + d.emailDomain
}

// Ensure returns the student for id, creating it when the account type's policy allows
// registration for p. A nil student with no error means the account stays unregistered.
func (d *Directory) Ensure(ctx context.Context, tx Tx, id Identity, p Purpose) (*Student, bool, error) {
	typ := ParseAccountType(id.Type)
	if typ == AccountStudent && !ValidSRCode(id.SRCode) {
		return nil, false, invalid("srcode %q must look like NN-NNNNN", id.SRCode)
	}

	existing, err := tx.GetStudent(ctx, id.SRCode)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if !typ.AutoRegisters(p) {
		return nil, false, nil
	}

	s := Student{
		SRCode:   id.SRCode,
		FullName: id.FullName,
		Email:    d.Email(id.SRCode),
		Type:     typ,
	}
	if err := tx.InsertStudent(ctx, s); err != nil {
		return nil, false, err
	}
	// Re-read so a concurrent first insert wins and counts stay authoritative.
	created, err := tx.GetStudent(ctx, id.SRCode)
	if err != nil {
		return nil, false, err
	}
	if created == nil {
		created = &s
	}
	return created, true, nil
}
