//go:build !linux && !darwin

package util

// DetectNetworkFilesystem reports every path as local on platforms without
// statfs based detection.
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	return &NetworkInfo{}, nil
}
