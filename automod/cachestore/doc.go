// Automod component for caching platform lookups (as strings) with a fixed TTL and purging.
//
// Includes an interface and implementations using redis and in-process memory.
//
// The engine caches enforcement role IDs per tenant here, so that escalations do not need a role listing call for every mute. The role reconciler refreshes entries on every sweep, and purges them when a role turns out to be gone.
package cachestore
