// Package training submits model training jobs to fal.ai and coordinates
// them with the subscription ledger: every training charges photo credits
// and counts against the plan's model limit before the job is enqueued.
package training
