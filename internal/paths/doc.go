// Package paths centralizes filesystem layout decisions for cofre.
//
// Backup outputs are organized under a single base directory:
//
//	<base>/
//	├── compressed/
//	│   ├── zip/
//	│   ├── gzip/
//	│   └── bzip2/
//	├── encrypted/
//	└── restored/
//
// The default base lives in the XDG data home; scratch files for
// in-flight pipeline stages live in the XDG cache home.
package paths
