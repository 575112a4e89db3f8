// Package maat contains the version number and wire-level constants shared by
// every Maat package.
package maat

import "time"

// Version is the current version of Maat.
//
// This variable is set at build time using the -X linker flag. If not set,
// it defaults to "devel".
var Version = "devel"

// AuthServerName is the path segment under the backend route that hosts the
// authorization server.
const AuthServerName = "imf-authserver"

// AuthPath is the path prefix of the authorization endpoint. The tenant
// identifier is appended to it.
const AuthPath = "authorization/v1/apps/"

// RewriteDomainHeader carries the configured rewrite domain on every request.
const RewriteDomainHeader = "X-REWRITE-DOMAIN"

// CompositeChallenge is the WWW-Authenticate value that marks a 401 response as
// a composite challenge that must be answered before the request is resent.
const CompositeChallenge = "WL-Composite-Challenge"

// ResultParam is the query parameter of a redirect Location that carries the
// per-realm authentication result.
const ResultParam = "wl_result"

// DefaultTimeout is used when neither the request nor the configuration sets one.
const DefaultTimeout = 20 * time.Second
