//go:build !linux

package watcher

// DetectFilesystemType is only implemented on Linux; elsewhere fsnotify is
// trusted and polling stays opt-in.
func DetectFilesystemType(string) FilesystemType {
	return FSTypeUnknown
}
