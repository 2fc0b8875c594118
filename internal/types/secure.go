package types

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds credentials such as provider tokens and the JWT signing
// key. fmt and encoding/json render it as a redacted placeholder.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// GoString covers the %#v verb.
func (s SecretString) GoString() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Empty reports whether no secret is configured.
func (s SecretString) Empty() bool {
	return s == ""
}

// Unmask returns the raw value. Callers are limited to the points where the
// secret leaves the process: provider request headers, DB DSNs and signing keys.
func (s SecretString) Unmask() string {
	return string(s)
}
