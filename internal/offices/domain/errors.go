package offices

import "errors"

var (
	// ErrEmptyOfficeID is returned when an office id is empty.
	ErrEmptyOfficeID = errors.New("offices: empty office id")
	// ErrEmptyUnit is returned when an office unit name is empty.
	ErrEmptyUnit = errors.New("offices: empty unit")
	// ErrNilOffice is returned when saving a nil office.
	ErrNilOffice = errors.New("offices: nil office")
	// ErrOfficeNotFound is returned when an office does not exist.
	ErrOfficeNotFound = errors.New("offices: office not found")
	// ErrProviderNotFound is returned when a provider id resolves to nothing.
	ErrProviderNotFound = errors.New("offices: provider not found")
)
