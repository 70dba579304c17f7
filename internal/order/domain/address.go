package domain

import (
	"fmt"
	"strings"
)

// Address is the canonical delivery address stored on an order. Every field
// is required at persistence time.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// RawAddress is the loosely-typed address payload clients submit. Old
// clients send a combined "name" instead of first/last and "zipCode"
// instead of "zipcode"; those alternates are resolved here and nowhere else.
type RawAddress struct {
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zipcode   string `json:"zipcode"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

var requiredAddressFields = []string{
	"firstName", "lastName", "email", "street", "city", "state", "zipcode", "country", "phone",
}

// ValidationError reports user-correctable input problems. For address
// failures MissingFields lists every required field still empty after all
// fallbacks were tried.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	if len(e.MissingFields) > 0 {
		return fmt.Sprintf("missing required address fields: %s", strings.Join(e.MissingFields, ", "))
	}
	return e.Message
}

// NormalizeAddress maps a raw client payload into a canonical address. For
// each field it tries the primary key, then the fallback key, then a value
// derived from the combined name. Pure and idempotent: normalizing a
// payload built from a canonical address yields that address back.
func NormalizeAddress(raw RawAddress) (Address, error) {
	first := strings.TrimSpace(raw.FirstName)
	last := strings.TrimSpace(raw.LastName)
	if name := strings.TrimSpace(raw.Name); name != "" {
		parts := strings.SplitN(name, " ", 2)
		if first == "" {
			first = parts[0]
		}
		if last == "" && len(parts) == 2 {
			last = strings.TrimSpace(parts[1])
		}
	}

	zip := strings.TrimSpace(raw.Zipcode)
	if zip == "" {
		zip = strings.TrimSpace(raw.ZipCode)
	}

	addr := Address{
		FirstName: first,
		LastName:  last,
		Email:     strings.TrimSpace(raw.Email),
		Street:    strings.TrimSpace(raw.Street),
		City:      strings.TrimSpace(raw.City),
		State:     strings.TrimSpace(raw.State),
		Zipcode:   zip,
		Country:   strings.TrimSpace(raw.Country),
		Phone:     strings.TrimSpace(raw.Phone),
	}

	values := map[string]string{
		"firstName": addr.FirstName,
		"lastName":  addr.LastName,
		"email":     addr.Email,
		"street":    addr.Street,
		"city":      addr.City,
		"state":     addr.State,
		"zipcode":   addr.Zipcode,
		"country":   addr.Country,
		"phone":     addr.Phone,
	}

	var missing []string
	for _, field := range requiredAddressFields {
		if values[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return Address{}, &ValidationError{MissingFields: missing}
	}

	return addr, nil
}

// Raw converts a canonical address back into the payload form, used by
// clients that round-trip a saved address through checkout again.
func (a Address) Raw() RawAddress {
	return RawAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Email:     a.Email,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		Zipcode:   a.Zipcode,
		Country:   a.Country,
		Phone:     a.Phone,
	}
}
