// Package fragment splits backup artifacts into fixed-size pieces spread
// across multiple destination directories and reconstructs them later.
//
// Fragment i of an artifact named X is written as X.part<NNN> into
// destination i mod N. The zero-padded index in the name is the only
// source of ordering, so reassembly works from any subset of directories
// that together hold every fragment, with no manifest required. A gap in
// the index sequence is reported rather than papered over.
package fragment
