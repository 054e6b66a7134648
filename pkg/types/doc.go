// Package types holds the small set of types shared by every hookkit package:
// the typed error taxonomy and the kinds callers branch on.
//
// Discovery and hook operations never panic and mostly report plain booleans.
// Where an error value does cross a package boundary it is a *Error carrying
// one of the kinds below, so callers can test intent with errors.Is instead of
// matching message text.
//
// This package has no dependencies beyond the standard library.
package types
