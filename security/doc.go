// Package security holds the TLS settings of the HTTP transport used by the
// request adapter.
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/path/to/ca.pem",
//	    CertFile:   "/path/to/client.pem",
//	    KeyFile:    "/path/to/client-key.pem",
//	    MinVersion: "1.3",
//	}
//
//	tlsConfig, err := cfg.Build()
//
// The tlstest subpackage generates throwaway certificates and TLS test
// servers trusted through those certificates.
package security
