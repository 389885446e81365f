// Package redislock provides a Redis lease implementation of the
// subscription.Locker interface for deployments running more than one
// service instance against a shared store.
//
// Acquisition is SET NX PX with a random token; release is a compare-and-
// delete Lua script so only the current holder can free the lease.
package redislock
