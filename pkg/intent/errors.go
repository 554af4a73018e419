package intent

import "errors"

var (
	// ErrMalformedIntentName is returned for an intent resource name with
	// no usable final segment.
	ErrMalformedIntentName = errors.New("malformed intent name")

	// ErrCredentials is returned when the service account key cannot be used.
	ErrCredentials = errors.New("intent detection credentials unusable")

	// ErrScriptExhausted is returned by Scripted once every record was served.
	ErrScriptExhausted = errors.New("scripted intents exhausted")
)
