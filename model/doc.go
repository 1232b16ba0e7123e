// Package model defines stable boundary types for the CLI and other API
// layers.
//
// Token records keep their own disk form (package codec). These structs are
// projections of classifier, resolver, validator and reconciler results and
// are the only types intended for direct JSON serialization by consumers.
package model
