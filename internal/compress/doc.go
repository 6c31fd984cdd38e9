// Package compress turns a set of source paths into a single compressed
// artifact and back.
//
// Three algorithms are supported. Zip is a container with per-entry
// deflate, which allows independent entries to be compressed in parallel
// by a bounded worker pool; the artifact bytes are still deterministic
// because entries are appended in sorted path order regardless of worker
// completion order. Gzip and bzip2 first combine the sources into a tar
// container and compress that stream as a whole.
//
// The reverse direction (Extract, ListContents, Verify) detects the
// format from the file extension, falling back to magic-byte sniffing,
// so callers never have to say how an artifact was produced.
package compress
