// Package internal documents the event pipeline's internal tree.
//
// The tree is organized by responsibility:
//   - model: shared domain types (Event, SelectorBundle, SourceURL, RunLog)
//   - browser, paginator, selectorextractor, discoverer, aiextractor: the
//     single-URL extraction primitives a Crawler composes
//   - siteadapter: host-matched overrides of the default extraction pipeline
//   - crawler: the single-URL pipeline
//   - orchestrator: the multi-URL worker pool and run bookkeeping
//   - normalize: field-level parsing and classification
//   - storage/sqlite: the embedded persistence layer
//   - config, pipeline, domain/ids: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
