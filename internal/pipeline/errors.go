// Package pipeline defines the typed error kinds shared by every stage of
// the extraction engine. Each kind implements error and carries enough
// context for a caller to decide locally whether to retry, fall through,
// or surface a RunLog warning — no stage aborts the Orchestrator because
// of one of these.
package pipeline

import "fmt"

// TransientFetchError wraps a network or navigation failure that is worth
// retrying once within the worker.
type TransientFetchError struct {
	URL string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("transient fetch error for %s: %v", e.URL, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// SelectorMismatch indicates a stored SelectorBundle resolved zero
// containers against the fetched page. The cache is never invalidated
// automatically — an admin decides whether to delete it.
type SelectorMismatch struct {
	Domain     string
	URLPattern string
}

func (e *SelectorMismatch) Error() string {
	return fmt.Sprintf("selector mismatch: no containers for %s%s", e.Domain, e.URLPattern)
}

// DiscoveryLowConfidence indicates the Discoverer returned a bundle below
// the caching threshold. The caller proceeds with it for this run only.
type DiscoveryLowConfidence struct {
	AdjustedConfidence float64
}

func (e *DiscoveryLowConfidence) Error() string {
	return fmt.Sprintf("discovery confidence too low to cache: %.2f", e.AdjustedConfidence)
}

// AITransportError wraps a failure to reach the AIExtractor capability.
type AITransportError struct {
	Err error
}

func (e *AITransportError) Error() string { return fmt.Sprintf("ai transport error: %v", e.Err) }
func (e *AITransportError) Unwrap() error  { return e.Err }

// AIMalformedResponse indicates the AIExtractor returned JSON that could
// not be repaired into a usable shape.
type AIMalformedResponse struct {
	Raw string
	Err error
}

func (e *AIMalformedResponse) Error() string {
	return fmt.Sprintf("ai malformed response: %v", e.Err)
}
func (e *AIMalformedResponse) Unwrap() error { return e.Err }

// NormalizationReject indicates one raw field map failed to normalize into
// an Event (most commonly an unparseable date). The caller drops the
// record silently and counts it as a skip, not a failure.
type NormalizationReject struct {
	Reason string
}

func (e *NormalizationReject) Error() string { return fmt.Sprintf("normalization reject: %s", e.Reason) }

// StoreBusy indicates a store operation exhausted its lock-contention
// retry budget.
type StoreBusy struct {
	Op  string
	Err error
}

func (e *StoreBusy) Error() string { return fmt.Sprintf("store busy during %s: %v", e.Op, e.Err) }
func (e *StoreBusy) Unwrap() error  { return e.Err }

// FatalConfig indicates a startup-time configuration problem (missing API
// key, unwritable DB). The Orchestrator aborts before spawning any workers.
type FatalConfig struct {
	Reason string
}

func (e *FatalConfig) Error() string { return fmt.Sprintf("fatal config error: %s", e.Reason) }
