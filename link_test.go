package claimlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLink(t *testing.T) {
	t.Parallel()

	link := BuildLink("https://peanut.me/claim", LinkParams{
		ChainID:         "137",
		ContractVersion: "v4.4",
		DepositIdx:      42,
		Password:        "deadbeefdeadbeefdeadbeefdeadbeef",
	})

	assert.Equal(t, "https://peanut.me/claim?c=137&v=v4.4&i=42#p=deadbeefdeadbeefdeadbeefdeadbeef", link)
}

func TestBuildLinkTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	link := BuildLink("https://peanut.me/claim/", LinkParams{
		ChainID:         "1",
		ContractVersion: "v4.4",
		DepositIdx:      0,
		Password:        "secret",
	})

	assert.Equal(t, "https://peanut.me/claim?c=1&v=v4.4&i=0#p=secret", link)
}

func TestLinkRoundTrip(t *testing.T) {
	t.Parallel()

	original := LinkParams{
		ChainID:         "8453",
		ContractVersion: "v4.2",
		DepositIdx:      1337,
		Password:        "a1b2c3d4e5f60718293a4b5c6d7e8f90",
	}

	link := BuildLink("https://peanut.me/claim", original)
	parsed, err := ParseLink(link)
	require.NoError(t, err)
	assert.Equal(t, original, *parsed)
}

func TestParseLinkErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		link string
	}{
		{"missing chain", "https://peanut.me/claim?v=v4.4&i=1#p=x"},
		{"missing version", "https://peanut.me/claim?c=137&i=1#p=x"},
		{"missing index", "https://peanut.me/claim?c=137&v=v4.4#p=x"},
		{"index not a number", "https://peanut.me/claim?c=137&v=v4.4&i=abc#p=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLink(tt.link)
			require.Error(t, err)
			assert.True(t, IsFlowCode(err, ErrCodeInvalidLink))
		})
	}
}

func TestParseLinkWithoutPassword(t *testing.T) {
	t.Parallel()

	parsed, err := ParseLink("https://peanut.me/claim?c=137&v=v4.4&i=7")
	require.NoError(t, err)
	assert.Empty(t, parsed.Password)
	assert.Equal(t, uint64(7), parsed.DepositIdx)
}
