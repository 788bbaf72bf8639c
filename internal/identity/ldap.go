package identity

import "github.com/chriscase/gitsvnsync/internal/model"

// LDAPResolver is the interface an optional LDAP lookup tier must
// satisfy. The real network client (bind, search-by-uid-filter,
// search-by-mail-filter) is an external collaborator — §1 of the spec
// names LDAP identity resolution as out of scope — so only the stub
// shape lives in core, grounded on the original's
// `crates/core/src/identity/ldap.rs` interface without its `ldap3`
// network calls.
type LDAPResolver interface {
	// LookupByUsername resolves an SVN username to a Git identity via
	// an LDAP uid filter. ok is false when no entry matches.
	LookupByUsername(username string) (identity model.GitIdentity, ok bool, err error)
	// LookupByEmail resolves a Git email to an SVN username via an
	// LDAP mail filter. ok is false when no entry matches.
	LookupByEmail(email string) (username string, ok bool, err error)
}
