package servo

import (
	"context"
	"strings"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

// Found is a serial bus with at least one answering servo. The bus is left
// open; the caller closes it.
type Found struct {
	Bus    *Bus
	Servos []feetech.FoundServo
}

// FindBuses opens every serial port and scans it for servos with IDs in
// [first, last].
func FindBuses(first, last int) ([]Found, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}

	var found []Found
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := Open(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, first, last)
		cancel()

		if err != nil || len(servos) == 0 {
			bus.Close()
			continue
		}
		found = append(found, Found{Bus: bus, Servos: servos})
	}
	return found, nil
}
