// Package match ranks identifiers by similarity. The validator uses it to
// suggest the intended name when a mapping file refers to an unknown node
// kind, import or type.
//
// Key functions:
//   - NormalizeIdent: normalizes identifiers for fuzzy matching
//   - Levenshtein: computes edit distance between strings
//   - Closest: picks the candidates nearest to a misspelled name
package match
