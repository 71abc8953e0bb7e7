package run

import (
	//
	// This package bundles CA certificates for use in TLS connections.
	//
	// Proxied routes may reach TLS upstreams from minimal containers that
	// ship without a system certificate store.
	//
	_ "golang.org/x/crypto/x509roots/fallback"
)
