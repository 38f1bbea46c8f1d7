package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocker(t *testing.T) {
	tests := []struct {
		raw      string
		major    int
		minor    int
		patch    int
		expected string
	}{
		{raw: "1.12.6", major: 1, minor: 12, patch: 6, expected: "1.12.6"},
		{raw: "1.9", major: 1, minor: 9, expected: "1.9.0"},
		{raw: "0.9.1", minor: 9, patch: 1, expected: "0.9.1"},
		{raw: "17.03.1-ce", major: 17, minor: 3, patch: 1, expected: "17.3.1"},
		{raw: "18.09.0", major: 18, minor: 9, expected: "18.9.0"},
		{raw: " 20.10.7 ", major: 20, minor: 10, patch: 7, expected: "20.10.7"},
	}

	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			v, err := ParseDocker(test.raw)
			require.NoError(t, err)

			assert.Equal(t, test.major, v.Major)
			assert.Equal(t, test.minor, v.Minor)
			assert.Equal(t, test.patch, v.Patch)
			assert.Equal(t, test.expected, v.String())
		})
	}
}

func TestParseDockerInvalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "latest", "one.two"} {
		_, err := ParseDocker(raw)
		assert.Error(t, err, raw)
	}
}

func TestTrimLeadingZeros(t *testing.T) {
	assert.Equal(t, "17.3.1-ce", trimLeadingZeros("17.03.1-ce"))
	assert.Equal(t, "1.0.0", trimLeadingZeros("1.00.0"))
	assert.Equal(t, "1.12.6+build.01", trimLeadingZeros("1.12.6+build.01"))
}
