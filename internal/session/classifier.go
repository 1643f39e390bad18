package session

import "strings"

// DefaultProducerSignature is carried in the User-Agent of bedside desktop clients.
const DefaultProducerSignature = "Desktop"

type Classifier struct {
	signatures []string
}

// NewClassifier builds a classifier matching any of the given substrings.
// Blank entries are ignored; with no usable entry the default signature applies.
func NewClassifier(signatures []string) *Classifier {
	clean := make([]string, 0, len(signatures))
	for _, s := range signatures {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		clean = []string{DefaultProducerSignature}
	}
	return &Classifier{signatures: clean}
}

// Classify never fails. Anything that does not carry a producer signature,
// including an empty identity, is a subscriber.
func (c *Classifier) Classify(identity string) Role {
	if identity == "" {
		return RoleSubscriber
	}
	for _, sig := range c.signatures {
		if strings.Contains(identity, sig) {
			return RoleProducer
		}
	}
	return RoleSubscriber
}
