// Package config loads service configuration from environment variables.
//
// Every value has a default suitable for local development: in-memory
// storage, no LLM and the example graphs only. Switching to Redis only
// takes STORAGE_BACKEND=redis and REDIS_ADDR:
//
//	STORAGE_BACKEND=redis REDIS_ADDR=redis:6379 RUN_RETENTION=72h dagoflow
package config
