// Package naming builds index and constraint identifiers that fit a database's
// maximum identifier length. Long names are shortened by dropping filler
// keywords, then by abbreviating every word, and finally (when the kind's
// policy allows it) replaced with a SHA-1 derived token. The same request
// always yields the same identifier, so callers can regenerate a name to drop
// the object later instead of storing it.
package naming
