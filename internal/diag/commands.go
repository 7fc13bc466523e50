package diag

// PlatformDetectCommand prints the kernel name, used once per host.
const PlatformDetectCommand = "uname -s"

// Commands returns the batch that samples interface counters and link state.
// The first command always yields counters and the second link attributes.
// Unknown platforms get the Linux batch; it fails per command if unsupported.
func Commands(platform Platform) []string {
	switch platform {
	case PlatformDarwin:
		return []string{
			"netstat -ibn",
			"ifconfig -a",
		}
	default:
		return []string{
			"cat /proc/net/dev",
			"ip -o link show",
		}
	}
}
