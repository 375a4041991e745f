// Package infer is the transport-agnostic core of the inference
// server: request/response providers, the servable orchestration layer
// and the scheduler contract between them. It is structured into small
// files by concern:
//
//   - request.go: RequestProvider contract and input byte-size validation.
//   - request_embedded.go: provider over a parsed in-memory request message.
//   - request_stream.go: provider over a raw segmented transport buffer.
//   - response.go: ResponseProvider contract, output ledger, finalization
//     and classification post-processing.
//   - response_embedded.go: outputs written into an outbound message.
//   - response_stream.go: outputs serialized into one outbound raw buffer.
//   - servable.go: Servable (descriptor, labels, scheduler, Run/AsyncRun).
//   - scheduler.go: Scheduler contract, Payload, standard runner pool.
//   - stats.go: per-request lifecycle phases, timings and metric reporting.
//   - metrics.go: prometheus families and per-device series caches.
//   - errors.go: error types and helpers (IsInvalidArgument, IsNotFound,
//     IsInternal, IsMisuse, IsTooBusy).
//
// A frontend builds one provider pair per inbound request, selects the
// embedded or streaming variant once at construction time, and calls
// Run or AsyncRun. The pair stays alive inside the scheduler's payload
// until the completion callback fires; no provider is reused across
// requests.
package infer
