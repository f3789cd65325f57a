// Package model defines the shared value types of the index: file identity
// and metadata, queries, scopes, and hits.
//
// The package is dependency-free on purpose so that every other package can
// import it without cycles.
package model
