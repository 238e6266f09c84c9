package report

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// sha256HexLen is the length of a SHA-256 digest written as hex, the only
// shape common.Sha256OfFile ever produces.
const sha256HexLen = 64

// FingerprintQR creates a QR code PNG encoding a decode session's SHA-256
// content fingerprint, so a printed SaveSessionPDF report can be paired
// back to the exact input file it was generated from.
func FingerprintQR(fingerprint string, size int) ([]byte, error) {
	normalized, err := normalizeFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 128
	}
	png, err := qrcode.Encode(normalized, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	return png, nil
}

// normalizeFingerprint strips the colon separators FingerprintQR's callers
// sometimes pass (report.go formats fingerprints plain, but operators
// copy-paste them from tools that punctuate every byte) and upper-cases
// the result. It rejects anything that isn't exactly sha256HexLen hex
// digits, since a report's QR code must never silently encode a
// truncated or corrupted fingerprint.
func normalizeFingerprint(fingerprint string) (string, error) {
	stripped := strings.ReplaceAll(strings.TrimSpace(fingerprint), ":", "")
	upper := strings.ToUpper(stripped)
	if len(upper) != sha256HexLen {
		return "", fmt.Errorf("fingerprint %q is not a %d-character SHA-256 digest", fingerprint, sha256HexLen)
	}
	for _, r := range upper {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return "", fmt.Errorf("fingerprint %q contains a non-hex character", fingerprint)
		}
	}
	return upper, nil
}
