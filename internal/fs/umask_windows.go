//go:build windows

package fs

// SetUmask is a no-op on Windows.
func SetUmask(mask int) int {
	return mask
}
