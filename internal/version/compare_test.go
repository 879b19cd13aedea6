package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want Ordering
	}{
		{"multi-digit minor", "1.2.0", "1.10.0", Less},
		{"date based patch", "2023.6.1", "2023.6.10", Less},
		{"missing trailing zero", "1.0", "1.0.0", Equal},
		{"missing trailing zero reversed", "1.0.0", "1.0", Equal},
		{"missing trailing nonzero", "1.0", "1.0.1", Less},
		{"equal", "1.2.3", "1.2.3", Equal},
		{"greater patch", "1.2.4", "1.2.3", Greater},
		{"greater major", "10.0.0", "9.99.99", Greater},
		{"leading zeros", "1.02.0", "1.2.0", Equal},
		{"huge build numbers", "1.0.202306011234567890123", "1.0.202306011234567890124", Less},
		{"non-numeric suffix lexicographic", "1.0.0-alpha", "1.0.0-beta", Less},
		{"numeric vs suffixed segment", "1.0.0", "1.0.0-beta", Less},
		{"missing vs text segment", "1.0", "1.0.beta", Less},
		{"v prefix tolerated", "v1.2.0", "1.2.0", Equal},
		{"whitespace tolerated", " 1.2.0 ", "1.2.0", Equal},
		{"empty vs version", "", "0.0.1", Less},
		{"both empty", "", "", Equal},
		{"arbitrary tokens", "latest", "nightly", Less},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
		})
	}
}

func TestCompareIsAntisymmetric(t *testing.T) {
	pairs := [][2]string{
		{"1.2.0", "1.10.0"},
		{"2023.6.1", "2023.6.10"},
		{"1.0", "1.0.1"},
		{"1.0.0-alpha", "1.0.0"},
		{"0.110.0", "0.27.1"},
	}
	for _, p := range pairs {
		assert.Equal(t, -Compare(p[0], p[1]), Compare(p[1], p[0]), "pair %v", p)
	}
}

func TestNewer(t *testing.T) {
	assert.True(t, Newer("1.5.0", "1.2.0"))
	assert.False(t, Newer("1.2.0", "1.2.0"))
	assert.False(t, Newer("1.1.0", "1.2.0"))
}

func TestOrderingString(t *testing.T) {
	assert.Equal(t, "less", Less.String())
	assert.Equal(t, "equal", Equal.String())
	assert.Equal(t, "greater", Greater.String())
}
