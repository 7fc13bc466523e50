package diag

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ParseProcNetDev parses /proc/net/dev into per-interface counters.
func ParseProcNetDev(procNetDev string) ([]Interface, error) {
	var interfaces []Interface
	scanner := bufio.NewScanner(strings.NewReader(procNetDev))

	for scanner.Scan() {
		line := scanner.Text()

		// "  iface: bytes packets errs drop fifo frame compressed multicast | bytes packets errs drop..."
		// The two header lines have a '|' but no ':'.
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		fields := strings.Fields(rest)

		// 8 receive + 8 transmit
		if name == "" || len(fields) < 16 {
			continue
		}

		var vals [16]int64
		for i := range vals {
			v, err := strconv.ParseInt(fields[i], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse field %d for %s: %w", i, name, err)
			}
			vals[i] = v
		}

		interfaces = append(interfaces, Interface{
			Name:      name,
			RxBytes:   vals[0],
			RxPackets: vals[1],
			RxErrors:  vals[2],
			RxDrops:   vals[3],
			TxBytes:   vals[8],
			TxPackets: vals[9],
			TxErrors:  vals[10],
			TxDrops:   vals[11],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning /proc/net/dev: %w", err)
	}

	return interfaces, nil
}

// ParseIPLink parses `ip -o link show` into link attributes. Counter
// fields of the returned interfaces are zero.
func ParseIPLink(output string) ([]Interface, error) {
	var interfaces []Interface
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		// 2: eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc mq state UP mode DEFAULT ... link/ether 52:54:00:12:34:56 brd ...
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.HasSuffix(fields[0], ":") {
			continue
		}

		name := strings.TrimSuffix(fields[1], ":")
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at] // eth0.100@eth0
		}

		iface := Interface{Name: name, State: StateUnknown}
		flags := strings.Trim(fields[2], "<>")

		for i := 2; i < len(fields)-1; i++ {
			switch key, val := fields[i], fields[i+1]; {
			case key == "mtu":
				mtu, err := strconv.Atoi(val)
				if err != nil {
					return nil, fmt.Errorf("failed to parse mtu for %s: %w", name, err)
				}
				iface.MTU = mtu
			case key == "state":
				iface.State = val
			case strings.HasPrefix(key, "link/") && strings.Count(val, ":") == 5:
				iface.MAC = val
			}
		}

		// Loopback and some virtual links report UNKNOWN while carrying traffic.
		if iface.State == StateUnknown && hasFlag(flags, "UP") && hasFlag(flags, "LOWER_UP") {
			iface.State = StateUp
		}

		interfaces = append(interfaces, iface)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning ip link output: %w", err)
	}

	return interfaces, nil
}

func hasFlag(flags, flag string) bool {
	for _, f := range strings.Split(flags, ",") {
		if f == flag {
			return true
		}
	}
	return false
}
