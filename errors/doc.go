// Package errors defines the error taxonomy shared by the request,
// serialization, auth and httpclient packages.
//
// Caller mistakes (empty content types, nil arguments, unregistered
// formats) surface as *Error with a configuration code. Failure
// responses from a service surface either as the typed model mapped for
// the status code or as *APIError.
package errors
