// Package diagnostic provides structured errors, warnings and infos reported
// while a mapping file is validated and built, and while a hydrated entity is
// checked against its row.
//
// Each diagnostic carries a stable code, the entity it belongs to and the
// origin path of the mapping node, so reports can be filtered and compared.
package diagnostic
