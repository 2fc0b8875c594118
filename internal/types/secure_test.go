package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const testSecret = "pm-server-token-12345"

func TestSecretString_Formatting(t *testing.T) {
	s := SecretString(testSecret)

	for _, verb := range []string{"%s", "%v", "%#v", "%+v"} {
		out := fmt.Sprintf(verb, s)
		if strings.Contains(out, testSecret) {
			t.Errorf("fmt.Sprintf(%s) leaked the raw secret: %s", verb, out)
		}
	}
}

func TestSecretString_MarshalJSON(t *testing.T) {
	settings := EmailSettings{ProviderToken: SecretString(testSecret), FromEmail: "hello@practice.test"}

	data, err := json.Marshal(settings)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), testSecret) {
		t.Errorf("JSON leaked the raw secret: %s", data)
	}
	if !strings.Contains(string(data), redactedPlaceholder) {
		t.Errorf("JSON missing placeholder: %s", data)
	}
}

func TestSecretString_UnmaskAndEmpty(t *testing.T) {
	s := SecretString(testSecret)
	if s.Unmask() != testSecret {
		t.Errorf("Unmask() = %q, want %q", s.Unmask(), testSecret)
	}
	if s.Empty() {
		t.Error("Empty() = true for a set secret")
	}
	if !SecretString("").Empty() {
		t.Error("Empty() = false for an unset secret")
	}
}
