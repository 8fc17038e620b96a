package network

import (
	"strings"

	"github.com/go-errors/errors"
)

// CredentialFields are the optional secrets a caller supplies when joining a
// network. An empty field counts as not supplied.
type CredentialFields struct {
	Passphrase string
	Identity   string
}

// Credentials is one of NoneCredentials, SharedKeyCredentials,
// ProtectedAccessCredentials or EnterpriseCredentials.
type Credentials interface {
	Security() SecurityClass
	credentials()
}

type NoneCredentials struct{}

type SharedKeyCredentials struct {
	Passphrase string
}

type ProtectedAccessCredentials struct {
	Passphrase string
}

type EnterpriseCredentials struct {
	Identity   string
	Passphrase string
}

func (NoneCredentials) Security() SecurityClass            { return SecurityNone }
func (SharedKeyCredentials) Security() SecurityClass       { return SecuritySharedKey }
func (ProtectedAccessCredentials) Security() SecurityClass { return SecurityProtectedAccess }
func (EnterpriseCredentials) Security() SecurityClass      { return SecurityEnterprise }

func (NoneCredentials) credentials()            {}
func (SharedKeyCredentials) credentials()       {}
func (ProtectedAccessCredentials) credentials() {}
func (EnterpriseCredentials) credentials()      {}

// NewCredentials builds the credentials variant required by the security
// class. It fails with ErrCredentialsMissing if a required field is empty.
func NewCredentials(security SecurityClass, fields CredentialFields) (Credentials, error) {
	switch security {
	case SecurityNone:
		return &NoneCredentials{}, nil
	case SecuritySharedKey:
		if fields.Passphrase == "" {
			return nil, wrapKind(ErrCredentialsMissing, nil)
		}
		return &SharedKeyCredentials{Passphrase: fields.Passphrase}, nil
	case SecurityProtectedAccess:
		if fields.Passphrase == "" {
			return nil, wrapKind(ErrCredentialsMissing, nil)
		}
		return &ProtectedAccessCredentials{Passphrase: fields.Passphrase}, nil
	case SecurityEnterprise:
		if fields.Passphrase == "" || fields.Identity == "" {
			return nil, wrapKind(ErrCredentialsMissing, nil)
		}
		return &EnterpriseCredentials{Identity: fields.Identity, Passphrase: fields.Passphrase}, nil
	default:
		return nil, errors.Errorf("unsupported security %v", security)
	}
}

// mask hides a secret for logging.
func mask(secret string) string {
	return strings.Repeat("*", len(secret))
}
