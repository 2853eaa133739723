package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_Deterministic(t *testing.T) {
	content := []byte("hello world")

	first := Fingerprint(content, "a.txt")
	second := Fingerprint(content, "b.txt")

	assert.Equal(t, first.SHA256, second.SHA256)
	assert.Len(t, first.SHA256, 64)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", first.SHA256)
	assert.Equal(t, len(content), first.SizeBytes)
}

func TestFingerprint_Tags(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		tags    []string
		verdict Verdict
	}{
		{
			name:    "pe header",
			content: []byte{0x4D, 0x5A, 0x90, 0x00, 0x03},
			tags:    []string{TagPEExecutable},
			verdict: VerdictSuspicious,
		},
		{
			name:    "elf header",
			content: []byte{0x7F, 0x45, 0x4C, 0x46, 0x02, 0x01},
			tags:    []string{TagELFExecutable},
			verdict: VerdictSuspicious,
		},
		{
			name:    "plain text",
			content: []byte("just some text"),
			tags:    []string{},
			verdict: VerdictUnknown,
		},
		{
			name:    "empty",
			content: []byte{},
			tags:    []string{},
			verdict: VerdictUnknown,
		},
		{
			name:    "short pe prefix only",
			content: []byte{0x4D},
			tags:    []string{},
			verdict: VerdictUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.content, "sample.bin")
			assert.Equal(t, tt.tags, got.Tags)
			assert.Equal(t, tt.verdict, got.Verdict)
		})
	}
}

func TestFingerprint_NeverCleanOrMalicious(t *testing.T) {
	for _, content := range [][]byte{
		{0x4D, 0x5A},
		{0x7F, 0x45, 0x4C, 0x46},
		[]byte("regular document"),
		nil,
	} {
		got := Fingerprint(content, "sample")
		assert.NotEqual(t, VerdictClean, got.Verdict)
		assert.NotEqual(t, VerdictMalicious, got.Verdict)
	}
}
