//go:build !ifcheck_release

package pool

// strictReleaseDefault makes a double Release panic unless the binary is
// built with -tags ifcheck_release.
const strictReleaseDefault = true
