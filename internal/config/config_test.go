package config

import (
	"testing"
	"time"

	"github.com/bazaar-next/internal/constants"
)

func TestReconcileInterval(t *testing.T) {
	defaultInterval := time.Duration(constants.ReconcileIntervalSecondsDefault) * time.Second
	if got := (ReconcileConfig{}).Interval(); got != defaultInterval {
		t.Fatalf("default interval want %v got %v", defaultInterval, got)
	}
	if got := (ReconcileConfig{AuditIntervalSeconds: -5}).Interval(); got != defaultInterval {
		t.Fatalf("non-positive interval should fall back, got %v", got)
	}
	if got := (ReconcileConfig{AuditIntervalSeconds: 30}).Interval(); got != 30*time.Second {
		t.Fatalf("configured interval want 30s got %v", got)
	}
}
