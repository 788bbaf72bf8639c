package identity

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
	"github.com/chriscase/gitsvnsync/internal/model"
)

// Config holds the settings the Mapper is built from, mirroring the
// original source's `IdentityConfig` (mapping-file path, fallback
// email domain, optional LDAP endpoint).
type Config struct {
	MappingFile string
	EmailDomain string
	LDAP        LDAPResolver
}

// Mapper is a thread-safe, bidirectional SVN-username <-> Git-identity
// resolver. Reads take an RWMutex read lock so concurrent sync
// goroutines never block each other; Reload swaps both caches under a
// write lock so in-flight reads see either the old or the new mapping,
// never a partial one.
type Mapper struct {
	mu          sync.RWMutex
	forward     map[string]AuthorEntry // svn username -> {name, email}
	reverse     map[string]string      // email -> svn username
	mappingFile string
	emailDomain string
	ldap        LDAPResolver
}

// New builds a Mapper from cfg, loading the mapping file immediately
// if one is configured. A missing file is not an error — the mapper
// starts with an empty cache and the fallback/LDAP tiers still apply.
func New(cfg Config) (*Mapper, error) {
	entries := map[string]AuthorEntry{}
	if cfg.MappingFile != "" {
		if _, err := os.Stat(cfg.MappingFile); err == nil {
			loaded, err := LoadMappingFile(cfg.MappingFile)
			if err != nil {
				return nil, err
			}
			entries = loaded
			log.Printf("[identity] loaded mapping file %s (%d entries)", cfg.MappingFile, len(entries))
		} else {
			log.Printf("[identity] mapping file %s not found, starting with empty map", cfg.MappingFile)
		}
	}

	m := &Mapper{
		forward:     entries,
		reverse:     buildReverseCache(entries),
		mappingFile: cfg.MappingFile,
		emailDomain: cfg.EmailDomain,
		ldap:        cfg.LDAP,
	}
	return m, nil
}

// SvnToGit resolves an SVN username to a Git identity through, in
// order: the mapping-file cache, LDAP (if configured), and the
// username@emailDomain fallback.
func (m *Mapper) SvnToGit(svnUsername string) (model.GitIdentity, error) {
	m.mu.RLock()
	if entry, ok := m.forward[svnUsername]; ok {
		m.mu.RUnlock()
		return model.GitIdentity{Name: entry.Name, Email: entry.Email}, nil
	}
	ldap := m.ldap
	m.mu.RUnlock()

	if ldap != nil {
		if identity, ok, err := ldap.LookupByUsername(svnUsername); err != nil {
			return model.GitIdentity{}, fmt.Errorf("identity: ldap lookup for %q: %w", svnUsername, err)
		} else if ok {
			m.addToCache(svnUsername, identity)
			return identity, nil
		}
	}

	if m.emailDomain != "" {
		identity := model.GitIdentity{Name: svnUsername, Email: fmt.Sprintf("%s@%s", svnUsername, m.emailDomain)}
		return identity, nil
	}

	return model.GitIdentity{}, &coreerrors.SvnUserNotFound{Username: svnUsername}
}

// GitToSvn resolves a Git identity back to an SVN username through,
// in order: the reverse cache (keyed by email), LDAP reverse lookup,
// and the email local-part fallback.
func (m *Mapper) GitToSvn(gitName, gitEmail string) (string, error) {
	m.mu.RLock()
	if username, ok := m.reverse[gitEmail]; ok {
		m.mu.RUnlock()
		return username, nil
	}
	ldap := m.ldap
	m.mu.RUnlock()

	if ldap != nil {
		if username, ok, err := ldap.LookupByEmail(gitEmail); err != nil {
			return "", fmt.Errorf("identity: ldap reverse lookup for %q: %w", gitEmail, err)
		} else if ok {
			return username, nil
		}
	}

	if local, _, found := strings.Cut(gitEmail, "@"); found && local != "" {
		return local, nil
	}

	return "", &coreerrors.GitIdentityNotFound{Name: gitName, Email: gitEmail}
}

// Reload re-reads the mapping file from disk and atomically swaps both
// caches. Safe to call while lookups are in flight.
func (m *Mapper) Reload() error {
	if m.mappingFile == "" {
		return nil
	}
	entries, err := LoadMappingFile(m.mappingFile)
	if err != nil {
		return err
	}
	reverse := buildReverseCache(entries)

	m.mu.Lock()
	m.forward = entries
	m.reverse = reverse
	m.mu.Unlock()

	log.Printf("[identity] reloaded mapping file %s (%d entries)", m.mappingFile, len(entries))
	return nil
}

func (m *Mapper) addToCache(svnUsername string, identity model.GitIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forward[svnUsername] = AuthorEntry{Name: identity.Name, Email: identity.Email}
	m.reverse[identity.Email] = svnUsername
}

func buildReverseCache(entries map[string]AuthorEntry) map[string]string {
	reverse := make(map[string]string, len(entries))
	for username, entry := range entries {
		reverse[entry.Email] = username
	}
	return reverse
}
