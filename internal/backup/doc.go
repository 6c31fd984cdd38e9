// Package backup orchestrates the pipeline around the lower layers:
// compress a set of folders, optionally encrypt the artifact, publish
// it into the output tree, and run the reverse path for restores.
//
// Every run stages its intermediate files in a private scratch
// directory and promotes only completed results with an atomic rename,
// so the output tree never contains half-written artifacts.
package backup
