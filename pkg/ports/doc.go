/*
Package ports defines the driven ports (interfaces) of the bot engine.

These interfaces decouple the interpreter from external implementations,
allowing the engine to work with various storage backends, lock services and
delivery channels.

# Key Interfaces

  - SessionStore: persists per-user SessionState and appends committed records
    in one atomic unit.
  - RecordReader: optional read access to the committed ledger.
  - CollectionRegistrar: optional up-front creation of declared collections.
  - DistributedLocker: distributed locking for concurrent access to one user.
  - Deliverer: transmits emitted content keys to a user.
*/
package ports
