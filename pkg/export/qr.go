package export

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCodePNG encodes content as a square PNG of the given pixel size.
func QRCodePNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
