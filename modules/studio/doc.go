// Package studio mounts the model training surface: selfie uploads to
// object storage, training submission gated by the subscription ledger,
// job status polling, and the caller's generation limits.
package studio
