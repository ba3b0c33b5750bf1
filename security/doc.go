// Package security builds TLS configurations for the websocket transport.
//
// The same TLSConfig serves both ends: Build gives a dialer config that
// verifies the server against CAFile and presents CertFile for mTLS;
// BuildServer gives a listener config that serves CertFile and, when
// CAFile is set, requires client certificates signed by it.
package security
