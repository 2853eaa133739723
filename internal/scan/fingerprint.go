package scan

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Format tags recognized from leading bytes.
const (
	TagPEExecutable  = "pe_executable"
	TagELFExecutable = "elf_executable"
)

var (
	peMagic  = []byte{0x4D, 0x5A}             // "MZ"
	elfMagic = []byte{0x7F, 0x45, 0x4C, 0x46} // "\x7fELF"
)

// Fingerprint computes the local assessment for file content: a SHA-256
// digest (the identity used for external lookups), format tags from the
// leading bytes, and a heuristic verdict. It is a pure function of its
// inputs; identical bytes always yield an identical digest and tags.
//
// Both magic checks read overlapping prefixes, so crafted input can carry
// both tags. That is intentional and matches the evidence consumers expect.
func Fingerprint(content []byte, filename string) LocalAssessment {
	sum := sha256.Sum256(content)

	tags := []string{}
	if bytes.HasPrefix(content, peMagic) {
		tags = append(tags, TagPEExecutable)
	}
	if bytes.HasPrefix(content, elfMagic) {
		tags = append(tags, TagELFExecutable)
	}

	// The fingerprinter has no basis for clean or malicious; executables
	// are suspicious, everything else is unknown.
	verdict := VerdictUnknown
	if len(tags) > 0 {
		verdict = VerdictSuspicious
	}

	return LocalAssessment{
		FileName:  filename,
		SHA256:    hex.EncodeToString(sum[:]),
		SizeBytes: len(content),
		Tags:      tags,
		Verdict:   verdict,
		ScannedAt: time.Now().Unix(),
	}
}
