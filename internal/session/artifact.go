package session

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

// artifactFile is the rendered pairing image inside each identity's storage
// subtree, next to whatever the protocol client persists there.
const artifactFile = "qr.png"

const artifactSize = 512

// Artifact is the rendered pairing code for a session: the raw payload, the
// encoded PNG kept in memory for inline retrieval, and the on-disk path the
// image was written to (empty when the write failed).
type Artifact struct {
	Raw  string
	PNG  []byte
	Path string
}

// renderPairingCode encodes the raw payload as a PNG QR image. It is a pure
// function of the payload: the same payload always yields identical bytes.
func renderPairingCode(raw string) ([]byte, error) {
	if raw == "" {
		return nil, errors.New("empty pairing payload")
	}
	png, err := qrcode.Encode(raw, qrcode.Medium, artifactSize)
	if err != nil {
		return nil, err
	}
	return png, nil
}
