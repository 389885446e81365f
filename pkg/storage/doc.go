// Package storage persists generated photos and training inputs behind a
// small Storage interface with S3 (production) and local filesystem
// (development) implementations. Only image content types are accepted.
package storage
