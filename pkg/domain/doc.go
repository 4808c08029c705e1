/*
Package domain contains the core domain models of the bot engine.

It defines the immutable flow graph, the per-user session state that is the
only long-lived mutable entity, the inbound event categories, and the records
committed to domain collections when a flow completes. This package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - FlowGraph: validated, immutable representation of the flow description.
  - Node: either a selection node (carousel of options) or a prompt list.
  - SessionState: per-user flow progress (active node, cursor, pending data).
  - ClassifiedEvent: the category of an inbound webhook event.
  - CommittedRecord: an append-only document written at flow completion.
*/
package domain
