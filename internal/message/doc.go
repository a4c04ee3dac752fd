// Package message defines the signed envelope accepted by the River VM, the
// closed set of message kinds, the typed bodies of the handled kinds and the
// JSON wire codec used at the HTTP boundary.
//
// A Message carries Data (the signed payload), the claimed signer key, the
// content hash of Data and a signature over that hash. Body values are
// canon.Object so that any body, including reserved kinds this package does
// not model, has exactly one canonical encoding.
package message
