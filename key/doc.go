// Package key implements the identity model used to address services: a Go
// type plus an ordered set of qualifiers.
//
// A Key is a small comparable value and can be used directly as a map key.
// Two keys built independently from the same type and the same qualifiers
// (in any order) compare equal and report the same hash.
//
//	k := key.Of[*sql.DB](key.Name("primary"))
//
// Keys decoded from declaring sites (struct fields, function parameters,
// method results, captured type tokens) are memoized by a Registry.
package key
