package domain

import "fmt"

// FetchErrorKind classifies why a district fetch failed.
type FetchErrorKind string

const (
	// FetchSourceRejected means the source answered with a non-OK result code.
	FetchSourceRejected FetchErrorKind = "source_rejected"
	// FetchMalformedResponse means the expected payload element was missing.
	FetchMalformedResponse FetchErrorKind = "malformed_response"
	// FetchTransport covers network, timeout, HTTP status, and decoding failures.
	FetchTransport FetchErrorKind = "transport"
)

// FetchError is returned by a district fetch.
type FetchError struct {
	District DistrictID
	Kind     FetchErrorKind
	Code     string // source result code, set for FetchSourceRejected
	Message  string
	Err      error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch district %s: %s: %v", e.District, e.Kind, e.Err)
	case e.Code != "":
		return fmt.Sprintf("fetch district %s: %s: %s: %s", e.District, e.Kind, e.Code, e.Message)
	default:
		return fmt.Sprintf("fetch district %s: %s: %s", e.District, e.Kind, e.Message)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// StoreErrorKind classifies store failures.
type StoreErrorKind string

const (
	// StoreDocumentRejected is a single document refused inside a bulk write.
	StoreDocumentRejected StoreErrorKind = "document_rejected"
	// StoreBatchFailure means the bulk write itself did not complete.
	StoreBatchFailure StoreErrorKind = "batch_failure"
)

// StoreError is returned by the store adapter.
type StoreError struct {
	Kind StoreErrorKind
	Key  string // set for StoreDocumentRejected
	Err  error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store %s %q: %v", e.Kind, e.Key, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
