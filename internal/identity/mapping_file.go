// Package identity resolves identities across the SVN/Git boundary:
// forward (SVN username -> Git author name+email) and reverse (Git
// name+email -> SVN username), each through a file/LDAP/fallback
// lookup chain.
package identity

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// AuthorEntry is one mapping-file row: the Git identity an SVN
// username resolves to.
type AuthorEntry struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// mappingFile is the on-disk TOML shape: a table of tables keyed by
// SVN username, following the original source's `mapping_file.rs`
// layout (`[authors.jdoe]`).
type mappingFile struct {
	Authors map[string]AuthorEntry `toml:"authors"`
}

// LoadMappingFile parses the TOML identity mapping file at path into
// an svn-username -> AuthorEntry map.
func LoadMappingFile(path string) (map[string]AuthorEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read mapping file %q: %w", path, err)
	}
	var mf mappingFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("identity: parse mapping file %q: %w", path, err)
	}
	if mf.Authors == nil {
		mf.Authors = map[string]AuthorEntry{}
	}
	return mf.Authors, nil
}
