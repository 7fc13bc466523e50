//go:build ifcheck_release

package pool

const strictReleaseDefault = false
