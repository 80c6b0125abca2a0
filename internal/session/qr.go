package session

import (
	"encoding/base64"
	"fmt"

	"rsc.io/qr"
)

// QRDataURL renders the pairing code as a PNG data URL
func QRDataURL(code string) (string, error) {
	c, err := qr.Encode(code, qr.M)
	if err != nil {
		return "", fmt.Errorf("encode pairing code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(c.PNG()), nil
}
