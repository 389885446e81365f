// Package redis connects to a Redis server with retrying startup and exposes
// a health check closure. The shared lock built on top of this client lives
// in pkg/redislock.
//
// Config fields load from environment variables via github.com/caarlos0/env.
package redis
