// Package provider groups the freight.Provider implementations.
//
// Subpackages:
//   - httpquote: parcel carriers priced through an HTTP JSON API
//   - table: freight carriers priced from a YAML rate table
//   - static: fixed candidates for development and tests
package provider
