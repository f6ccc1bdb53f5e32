package lisa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"0.15.1", Version{0, 15, 1}, false},
		{"v0.15.1", Version{0, 15, 1}, false},
		{"v15-1", Version{0, 15, 1}, false},
		{"v9-1", Version{0, 9, 1}, false},
		{"0.15", Version{0, 15, 0}, false},
		{"1.0.0", Version{1, 0, 0}, false},
		{"", Version{}, true},
		{"15", Version{}, true},
		{"a.b.c", Version{}, true},
		{"0.-1.0", Version{}, true},
		{"1.2.3.4", Version{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionOrder(t *testing.T) {
	ordered := []Version{{0, 9, 1}, {0, 10, 0}, {0, 13, 0}, {0, 13, 1}, {0, 14, 0}, {0, 15, 1}, {1, 0, 0}, {1, 0, 2}}
	for i := range ordered {
		for j := range ordered {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equal(t, want, ordered[i].Compare(ordered[j]), "%s vs %s", ordered[i], ordered[j])
		}
	}
	assert.True(t, Version{0, 14, 0}.Less(Version{0, 14, 1}))
	assert.True(t, Version{1, 0, 0}.AtLeast(LengthFixed))
	assert.Equal(t, "v0.15.1", Version{0, 15, 1}.String())
}

func TestLegacyBoundary(t *testing.T) {
	assert.True(t, Version{0, 9, 1}.Legacy())
	assert.True(t, Version{0, 9, 99}.Legacy())
	assert.False(t, Version{0, 10, 0}.Legacy())
}

func TestVersionFromValues(t *testing.T) {
	v, err := versionFromValues([]float64{0, 15, 1})
	require.NoError(t, err)
	assert.Equal(t, Version{0, 15, 1}, v)

	v, err = versionFromValues([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, Version{1, 2, 0}, v)

	_, err = versionFromValues([]float64{0})
	assert.True(t, errors.Is(err, ErrCorruptArchive))

	_, err = versionFromValues([]float64{0, 1.5, 0})
	assert.ErrorIs(t, err, ErrCorruptArchive)
}
