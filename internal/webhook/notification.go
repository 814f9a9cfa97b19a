package webhook

import (
	"encoding/json"
	"fmt"
	"regexp"

	"signtrack/internal/domain"
	"signtrack/internal/xmlmap"
)

// apiVersionPattern matches the provider's versioned namespace on the
// EnvelopeStatus element, e.g. {http://www.docusign.net/API/3.0}EnvelopeStatus.
var apiVersionPattern = regexp.MustCompile(`^\{http://www\.docusign\.net/API/(.+)\}EnvelopeStatus$`)

// Notification is the typed view of a decoded status-change payload. It is
// built once from the generic tree; the reconciler never walks raw keys.
type Notification struct {
	APIVersion     string
	EnvelopeID     string
	EnvelopeStatus string

	// RecipientStatus is the signer's own status, independent of the
	// envelope status. Empty when the payload carries none.
	RecipientStatus string

	// Identity-verification sub-statuses, empty when absent.
	IDQuestionsStatus string
	IDLookupStatus    string

	// AuthInfo is the raw RecipientAuthenticationStatus subtree with
	// namespaces stripped, JSON-encoded for audit persistence. Nil when the
	// payload carries no authentication status.
	AuthInfo []byte
}

// parseNotification locates the versioned namespace, scrubs volatile
// recipient sub-fields, and extracts the status fields the reconciler needs.
func parseNotification(tree xmlmap.Map) (*Notification, error) {
	version, envStatus := findEnvelopeStatus(tree)
	if version == "" {
		return nil, fmt.Errorf("%w: no API version marker", domain.ErrUnrecognizedPayload)
	}
	ns := "{http://www.docusign.net/API/" + version + "}"

	// Tab statuses, user name and form data arrive populated with values we
	// never persist or interpret, and they can break downstream
	// serialization. Drop them before anything round-trips the tree.
	if recipient := envStatus.Child(ns + "RecipientStatuses").Child(ns + "RecipientStatus"); recipient != nil {
		recipient[ns+"TabStatuses"] = nil
		recipient[ns+"UserName"] = nil
		recipient[ns+"FormData"] = nil
	}

	plain := stripNamespace(envStatus, ns)

	n := &Notification{APIVersion: version}

	var ok bool
	n.EnvelopeID, ok = plain.Leaf("EnvelopeID")
	if !ok || n.EnvelopeID == "" {
		return nil, fmt.Errorf("%w: EnvelopeStatus.EnvelopeID absent", domain.ErrMissingEnvelopeID)
	}
	n.EnvelopeStatus, ok = plain.Leaf("Status")
	if !ok || n.EnvelopeStatus == "" {
		return nil, fmt.Errorf("%w: EnvelopeStatus.Status absent", domain.ErrUnrecognizedPayload)
	}

	recipient := plain.Child("RecipientStatuses").Child("RecipientStatus")
	n.RecipientStatus, _ = recipient.Leaf("Status")

	if auth := recipient.Child("RecipientAuthenticationStatus"); auth != nil {
		n.IDQuestionsStatus, _ = auth.Child("IDQuestionsResult").Leaf("Status")
		n.IDLookupStatus, _ = auth.Child("IDLookupResult").Leaf("Status")
		encoded, err := json.Marshal(auth)
		if err != nil {
			return nil, fmt.Errorf("encode authentication status for envelope %s: %w", n.EnvelopeID, err)
		}
		n.AuthInfo = encoded
	}

	return n, nil
}

// findEnvelopeStatus walks the tree for a key matching the versioned
// EnvelopeStatus namespace and returns the version plus that subtree.
func findEnvelopeStatus(tree xmlmap.Map) (string, xmlmap.Map) {
	for key, value := range tree {
		if m := apiVersionPattern.FindStringSubmatch(key); m != nil {
			child, _ := value.(xmlmap.Map)
			return m[1], child
		}
		if child, ok := value.(xmlmap.Map); ok {
			if version, found := findEnvelopeStatus(child); version != "" {
				return version, found
			}
		}
	}
	return "", nil
}

// stripNamespace rewrites every key with the given namespace prefix removed.
// Keys in other namespaces are kept as-is. Nil values (scrubbed fields) are
// dropped entirely.
func stripNamespace(tree xmlmap.Map, ns string) xmlmap.Map {
	if tree == nil {
		return nil
	}
	out := make(xmlmap.Map, len(tree))
	for key, value := range tree {
		if value == nil {
			continue
		}
		plain := key
		if len(key) >= len(ns) && key[:len(ns)] == ns {
			plain = key[len(ns):]
		}
		if child, ok := value.(xmlmap.Map); ok {
			out[plain] = stripNamespace(child, ns)
			continue
		}
		out[plain] = value
	}
	return out
}
