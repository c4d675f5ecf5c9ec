package recorder

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashDocument computes the SHA-256 of a document's canonical JSON
// encoding, hex encoded. Map keys marshal sorted, so equal documents
// hash equal. Returns an empty string for documents that cannot be
// encoded (host callables and the like).
func HashDocument(doc map[string]any) string {
	if len(doc) == 0 {
		return ""
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return HashContent(data)
}

// HashContent computes the hex-encoded SHA-256 of content. Returns an
// empty string for empty content.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
