package state

import (
	"contribution-ledger/internal/hashing"
	"sync"
)

const (
	FamilyName    string = "uc-ledger"
	FamilyVersion string = "1.0"

	namespaceLength = 6
	prefixLength    = 6
	keyLength       = 58
)

var (
	familyHash = ""
	calcOnce   sync.Once
)

func initHashVars() {
	calcOnce.Do(func() {
		familyHash = hashing.CalculateSHA512(FamilyName)
	})
}

// Namespace returns the address prefix shared by every key of the family.
func Namespace() string {
	initHashVars()
	return familyHash[0:namespaceLength]
}

// TablePrefix returns the address prefix of all keys of a table.
func TablePrefix(table string) string {
	return Namespace() + hashing.CalculateSHA512(table)[0:prefixLength]
}

// Address derives the state address of a record. With several parts the key space is
// split evenly, so the first part alone can be used as a scan prefix via PartPrefix.
func Address(table string, parts ...string) string {
	address := TablePrefix(table)
	if len(parts) == 0 {
		return address
	}

	size := keyLength / len(parts)
	for i, part := range parts {
		n := size
		if i == len(parts)-1 {
			n = keyLength - size*(len(parts)-1)
		}
		address += hashing.CalculateSHA512(part)[0:n]
	}
	return address
}

// PartPrefix returns the scan prefix of all records of a table whose first key part,
// out of total parts, equals first.
func PartPrefix(table string, total int, first string) string {
	return TablePrefix(table) + hashing.CalculateSHA512(first)[0:keyLength/total]
}
