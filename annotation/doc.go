// Package annotation defines range-addressed notes and their encodings.
//
// A Range is addressed by its Key, "startLine:startCol-endLine:endCol".
// A Map groups every annotation of one document by Key; several annotations
// may share a key and are kept in insertion order. Sorted derives the
// position-ordered list view from a Map.
package annotation
