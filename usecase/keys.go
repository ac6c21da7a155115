package usecase

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeDomain lower-cases and trims d, then strips a single leading "www.".
func NormalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.TrimPrefix(d, "www.")
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName lower-cases a company name and collapses inner whitespace.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// HashFilters returns a sha256 hex digest of filters that does not depend on map key order.
func HashFilters(filters any) string {
	canonical, err := canonicalJSON(filters)
	if err != nil {
		canonical = []byte(fmt.Sprintf("%#v", filters))
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// canonicalJSON round-trips v through a generic value so every object is re-encoded with sorted keys.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

func SearchKey(filters any) string {
	return "search:" + HashFilters(filters)
}

func CompanyKey(domain string) string {
	return "company:" + NormalizeDomain(domain)
}

func ContactsKey(domain string) string {
	return "contacts:" + NormalizeDomain(domain)
}

func EmailKey(email string) string {
	return "email:" + NormalizeEmail(email)
}

func NameKey(name string) string {
	return "name:" + NormalizeName(name)
}
