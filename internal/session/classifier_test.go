package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name     string
		identity string
		want     Role
	}{
		{"simulator user agent", "HealthGo-Desktop-Simulator", RoleProducer},
		{"bare signature", "Desktop", RoleProducer},
		{"browser", "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0", RoleSubscriber},
		{"empty", "", RoleSubscriber},
		{"case sensitive", "healthgo-desktop", RoleSubscriber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.identity))
		})
	}
}

func TestClassify_CustomSignatures(t *testing.T) {
	c := NewClassifier([]string{" BedsideMonitor ", "", "Desktop"})

	assert.Equal(t, RoleProducer, c.Classify("acme-BedsideMonitor/2.1"))
	assert.Equal(t, RoleProducer, c.Classify("HealthGo-Desktop-Simulator"))
	assert.Equal(t, RoleSubscriber, c.Classify("curl/8.4.0"))
}

func TestNewClassifier_BlankFallsBackToDefault(t *testing.T) {
	c := NewClassifier([]string{"", "  "})
	assert.Equal(t, RoleProducer, c.Classify("x-Desktop-y"))
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "producer", RoleProducer.String())
	assert.Equal(t, "subscriber", RoleSubscriber.String())
	assert.Equal(t, "unknown", Role(7).String())
}
