//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"net"
)

// fallbackLoopback is used when no loopback interface reports an IPv4 address.
const fallbackLoopback = "127.0.0.1"

// DetectLoopback returns the host-local IPv4 address the engine binds to.
// Shared hosts occasionally remap loopback, so the interface table is
// consulted instead of hard-coding 127.0.0.1.
func DetectLoopback() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("list network interfaces: %w", err)
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback == 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addresses, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, address := range addresses {
			ipNet, ok := address.(*net.IPNet)
			if !ok {
				continue
			}

			if ip := ipNet.IP.To4(); ip != nil {
				return ip.String(), nil
			}
		}
	}

	return fallbackLoopback, nil
}
