// Package core loads shipment records from three tabular sources into the
// product and shipment tables as a single unit of work.
//
// It is independent of any transport or storage engine: the CLI, the HTTP
// trigger and the tests all drive the same [Coordinator] through the
// [Store] and [Tx] interfaces.
//
// # Run
//
// A run has two phases:
//
//  1. Prepare. Sources are read and checked before any transaction opens:
//     [DistinctProducts] collects product names from the direct and joined-left
//     sources, [DirectRecords] builds typed records from the direct source,
//     [InnerJoin] combines the joined-left and joined-right sources on
//     shipment_identifier, and [JoinedRecords] builds their records.
//  2. Apply. Inside one [UnitOfWork], [Reconcile] inserts any new product
//     names and reads back the name→id [Catalog], then the [Loader] inserts
//     the direct records followed by the joined records.
//
// The unit commits only when every step succeeds. Any failure rolls back
// every product and shipment written by the run.
//
// # Policies
//
//   - A record whose product is not in the catalog is skipped and counted in
//     [LoadStats.Skipped]. It is not an error.
//   - Joined records always have quantity 1. Direct records take
//     product_quantity verbatim.
//   - The join is inner. Repeated keys expand to every matching pair unless
//     [JoinOptions.RejectDuplicateKeys] is set.
//   - Callers that can start runs concurrently admit one at a time through a
//     [RunGate]. A refused caller gets [ErrRunInProgress].
//
// # Error Handling
//
// Input problems are [*SourceError] values and store failures are
// [*StoreError] values. [MapError] turns either into a coded [UserMessage]:
//
//   - SRC001-SRC004: Source errors (unreadable file, missing column, bad value, duplicate key)
//   - DB001-DB006: Store errors (constraints, connection, timeout, busy)
//   - RUN001-RUN002: Run errors (already running, already finished)
package core
