// Package snowflake normalizes platform identifiers into a canonical 64-bit ID.
//
// Integers convert by cast, text parses strictly, and records expose their
// stored id through Like. Wire lists decode leniently and drop entries that
// do not parse.
package snowflake
