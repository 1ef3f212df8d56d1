// Package html provides a Normaliser for HTML documents. Scripts, styles and
// markup are removed and entities decoded, leaving one line per text block.
package html
