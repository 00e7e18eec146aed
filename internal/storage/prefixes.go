package storage

import "fmt"

// Known tables. Each table is modelled as a single-byte key prefix within
// one badger database, the way record kinds are modelled as single-byte
// prefixes rather than as separate databases.
var tablePrefixes = map[string]byte{
	"account_state_live":    0x01,
	"account_state_staging": 0x02,
}

func prefixFor(table string) (byte, error) {
	p, ok := tablePrefixes[table]
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	return p, nil
}

// encodeKey builds a badger key by prepending the table's prefix byte to the
// hash bytes.
func encodeKey(prefix byte, hash [32]byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = prefix
	copy(key[1:], hash[:])
	return key
}
