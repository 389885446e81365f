// Package mongostore persists user subscriptions in MongoDB using the
// official v2 driver. Documents are keyed by user_id with a unique index;
// call EnsureIndexes once at startup.
package mongostore
