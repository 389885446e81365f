// Package identity delegates authentication to external OAuth providers and
// normalizes the result into an Identity whose ID keys the rest of the
// system. No credentials are ever stored locally.
package identity
