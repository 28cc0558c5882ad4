// Package dbase reads and writes dBase-family table files (DBF) and
// their memo sidecars (DBT): dialect detection from the header's version
// byte, code-page-aware text conversion, a fixed-width field layout
// compiler, and a table engine for sequential record access. It does
// not implement indexed access, SQL execution, or multi-writer
// concurrency; the last writer to close a table wins.
package dbase
