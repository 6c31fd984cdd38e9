// Package storage moves finished artifacts and fragments off the
// machine that produced them. The cloud side targets S3 through an
// injected client handle; the local side copies into mounted
// directories such as external drives or network shares.
package storage
