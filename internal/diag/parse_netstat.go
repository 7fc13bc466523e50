package diag

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// ParseNetstat parses macOS `netstat -ibn` output. Only the link-level
// rows (<Link#N>) are used since they carry the interface totals.
func ParseNetstat(netstatOutput string) ([]Interface, error) {
	var interfaces []Interface
	scanner := bufio.NewScanner(strings.NewReader(netstatOutput))

	headerSkipped := false
	seen := make(map[string]bool)

	for scanner.Scan() {
		line := scanner.Text()

		if !headerSkipped {
			if strings.HasPrefix(line, "Name") {
				headerSkipped = true
			}
			continue
		}

		// Name  Mtu   Network       Address            Ipkts Ierrs     Ibytes    Opkts Oerrs     Obytes  Coll
		// en0   1500  <Link#4>      xx:xx:xx:xx:xx:xx  12345     0   12345678    67890     0    9876543     0
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}

		name := strings.TrimSuffix(fields[0], "*")
		if seen[name] || !strings.HasPrefix(fields[2], "<Link#") {
			continue
		}
		seen[name] = true

		// The address column is absent for loopback and tunnels, so collect
		// the numeric columns instead of indexing fixed positions.
		var nums []int64
		mac := ""
		for _, f := range fields[1:] {
			if v, err := strconv.ParseInt(f, 10, 64); err == nil {
				nums = append(nums, v)
			} else if strings.Count(f, ":") == 5 {
				mac = f
			}
		}

		// mtu, ipkts, ierrs, ibytes, opkts, oerrs, obytes
		if len(nums) < 7 {
			return nil, fmt.Errorf("unexpected netstat row for %s: %q", name, line)
		}

		interfaces = append(interfaces, Interface{
			Name:      name,
			MTU:       int(nums[0]),
			MAC:       mac,
			RxPackets: nums[1],
			RxErrors:  nums[2],
			RxBytes:   nums[3],
			TxPackets: nums[4],
			TxErrors:  nums[5],
			TxBytes:   nums[6],
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning netstat output: %w", err)
	}

	return interfaces, nil
}

// ParseIfconfig parses macOS `ifconfig -a` into link attributes.
func ParseIfconfig(output string) ([]Interface, error) {
	var interfaces []Interface
	var cur *Interface

	flush := func() {
		if cur != nil {
			interfaces = append(interfaces, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		// en0: flags=8863<UP,BROADCAST,SMART,RUNNING,SIMPLEX,MULTICAST> mtu 1500
		if line[0] != ' ' && line[0] != '\t' {
			flush()
			name, rest, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			cur = &Interface{Name: name, State: StateDown}

			fields := strings.Fields(rest)
			for i, f := range fields {
				if strings.HasPrefix(f, "flags=") {
					if open := strings.IndexByte(f, '<'); open >= 0 {
						if hasFlag(strings.Trim(f[open:], "<>"), "UP") {
							cur.State = StateUp
						}
					}
				}
				if f == "mtu" && i+1 < len(fields) {
					mtu, err := strconv.Atoi(fields[i+1])
					if err != nil {
						return nil, fmt.Errorf("failed to parse mtu for %s: %w", name, err)
					}
					cur.MTU = mtu
				}
			}
			continue
		}

		if cur == nil {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "ether":
			cur.MAC = fields[1]
		case "status:":
			if fields[1] != "active" {
				cur.State = StateDown
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning ifconfig output: %w", err)
	}

	return interfaces, nil
}
