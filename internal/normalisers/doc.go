// Package normalisers turns uploaded document bytes into plain text.
//
// Each sub-package implements driven.Normaliser for one format. The Registry
// picks a normaliser by MIME type, falling back to the file extension, and
// prefers the highest priority when several match.
package normalisers
