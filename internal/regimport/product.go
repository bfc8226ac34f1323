package regimport

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// GenericProductName is used when the device type cannot be determined.
const GenericProductName = "Lumia XXX (RM-XXX)"

// DefaultProductFile returns %SystemDrive%\DPP\MMO\product.dat, or "" when
// SystemDrive is not set.
func DefaultProductFile() string {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		return ""
	}
	return drive + `\DPP\MMO\product.dat`
}

// ReadProductName derives the USB product string from a product.dat file.
func ReadProductName(path string) string {
	if path == "" {
		return GenericProductName
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return GenericProductName
	}
	defer f.Close()
	return ProductName(f)
}

// ProductName derives the USB product string from the TYPE: line of
// product.dat content.
func ProductName(r io.Reader) string {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !strings.HasPrefix(line, "TYPE:") {
			continue
		}
		parts := strings.Split(line, ":")
		return productForType(strings.TrimSpace(parts[len(parts)-1]))
	}
	return GenericProductName
}

func productForType(typ string) string {
	switch typ {
	case "RM-1085":
		return "Lumia 950 XL (" + typ + ")"
	case "RM-1104", "RM-1105":
		return "Lumia 950 (" + typ + ")"
	case "RM-1116":
		return "Lumia 950 XL Dual SIM (" + typ + ")"
	case "RM-1118":
		return "Lumia 950 Dual SIM (" + typ + ")"
	case "RX-130", "RX-127":
		return "id330-1 (" + typ + ")"
	}
	return GenericProductName
}
