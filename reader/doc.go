// Package reader loads a PDF file into memory and resolves its objects.
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    return err // always a *diag.DocumentLoadError
//	}
//	pages, err := r.Pages()
//
// Classic xref tables, cross-reference streams, hybrid files and object
// streams are supported. A damaged xref is rebuilt by scanning the file.
// Encrypted documents are rejected with [diag.ErrEncrypted].
//
// A Reader is safe for concurrent use: the file is held as an immutable byte
// slice and the object cache is guarded by a mutex.
package reader
