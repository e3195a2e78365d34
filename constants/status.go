package constants

// RequestState tracks one ingestion request through the pipeline.
type RequestState string

// Stable values (logged and echoed in pipeline results).
const (
	StateReceived   RequestState = "RECEIVED"
	StateDecoded    RequestState = "DECODED"
	StateDetected   RequestState = "DETECTED"
	StateExtracted  RequestState = "EXTRACTED"
	StateStructured RequestState = "STRUCTURED"

	StatePersisted     RequestState = "PERSISTED"      // record saved, identity returned
	StateParseFailed   RequestState = "PARSE_FAILED"   // LLM output held no well-formed JSON
	StatePersistFailed RequestState = "PERSIST_FAILED" // fields valid, save rolled back
)

// Terminal reports whether the state ends a request.
func (s RequestState) Terminal() bool {
	switch s {
	case StatePersisted, StateParseFailed, StatePersistFailed:
		return true
	}
	return false
}
