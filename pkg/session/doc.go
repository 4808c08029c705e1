/*
Package session serializes conversation updates per user.

Every inbound event runs read state, compute transition, write state and
commit records as one unit. The Manager holds a reference-counted local mutex
per user, optionally a distributed lock for multi-replica deployments, and
retries on optimistic version conflicts by re-running the update against
freshly loaded state.
*/
package session
