//go:build !darwin

package tray

func Init() <-chan struct{}    { return make(chan struct{}) }
func updateRecordingItem(bool) {}
func updateCopyItem(string)    {}
func updateTooltip(string)     {}
func addUpdateMenuItem(string) {}
