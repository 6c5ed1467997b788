// Package events provides run event bus implementations.
//
// The memory bus fans out in process. The redis bus appends to a stream
// per topic and every subscriber tails that stream on its own, so
// several replicas can follow the same runs.
package events
