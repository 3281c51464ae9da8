package cache

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestIsHit(t *testing.T) {
	tests := []struct {
		name      string
		distance  float64
		threshold float64
		want      bool
	}{
		{name: "well inside", distance: 0.02, threshold: 0.1, want: true},
		{name: "just inside", distance: 0.0999, threshold: 0.1, want: true},
		{name: "exactly at threshold misses", distance: 0.1, threshold: 0.1, want: false},
		{name: "outside", distance: 0.4, threshold: 0.1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHit(tt.distance, tt.threshold); got != tt.want {
				t.Errorf("IsHit(%v, %v) = %v, want %v", tt.distance, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	c := &SemanticCache{keyPrefix: "cache:"}

	first := c.Key("how many leave days do I have")
	second := c.Key("how many leave days do I have")
	other := c.Key("different question")

	if first != second {
		t.Errorf("same query produced different keys: %q vs %q", first, second)
	}
	if first == other {
		t.Errorf("different queries collided on %q", first)
	}
	if !strings.HasPrefix(first, "cache:") {
		t.Errorf("key %q missing prefix", first)
	}
}

func TestVectorBytes(t *testing.T) {
	values := []float32{1.5, -2.25, 0}

	buf := vectorBytes(values)
	if len(buf) != 4*len(values) {
		t.Fatalf("len = %d, want %d", len(buf), 4*len(values))
	}
	for i, v := range values {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if got != v {
			t.Errorf("value %d = %v, want %v", i, got, v)
		}
	}
}
