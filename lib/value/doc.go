// Package value implements the tagged datum stored in every table row and
// KV slot: String, Int, Float, Bool, Document, Array and Null.
//
// Values are immutable. Host input enters through FromNative or FromJSON,
// both of which reject nesting beyond a recursion limit with
// RecursionLimitExceeded instead of descending without bound. Numeric
// strings are never coerced into numbers; schema validation in lib/db
// reports such input as a TypeMismatch.
//
// Comparison rules:
//   - Equal treats Int and Float as one numeric domain and documents as
//     unordered field sets.
//   - Compare orders numbers, strings and booleans (false < true) and
//     reports no order for any other pairing.
//   - Key produces a canonical encoding consistent with Equal, used to
//     index unique fields.
//
// Values encode to JSON (documents keep field order) and to BSON, the
// latter being the serialization used by lib/persist.
package value
