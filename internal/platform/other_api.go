//go:build !linux && !darwin && !windows

package platform

import "context"

type unsupportedSource struct{}

// NewWindowSource returns a source that always reports ErrUnsupported
func NewWindowSource() WindowSource {
	return unsupportedSource{}
}

func (unsupportedSource) ActiveWindow(context.Context) (*WindowInfo, error) {
	return nil, ErrUnsupported
}
