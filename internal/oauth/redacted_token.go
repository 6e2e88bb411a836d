package oauth

// RedactedToken carries an access or refresh token through code that may log it.
// Every formatting and serialization path renders "[REDACTED]"; only Value
// exposes the credential.
type RedactedToken struct {
	value string
}

const redacted = "[REDACTED]"

func NewRedactedToken(value string) RedactedToken {
	return RedactedToken{value: value}
}

// Value returns the credential. Never log the result.
func (t RedactedToken) Value() string {
	return t.value
}

func (t RedactedToken) String() string {
	if t.value == "" {
		return "<none>"
	}
	return redacted
}

func (t RedactedToken) GoString() string {
	return "oauth.RedactedToken{" + redacted + "}"
}

func (t RedactedToken) IsEmpty() bool {
	return t.value == ""
}

func (t RedactedToken) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

func (t RedactedToken) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}
