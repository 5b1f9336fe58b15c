// Package media decides which files pulse can open.
package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var audioExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

var playlistExts = map[string]bool{
	".m3u":  true,
	".m3u8": true,
	".pls":  true,
}

// IsSupportedExt returns true if the extension is a decodable audio format.
func IsSupportedExt(ext string) bool {
	return audioExts[strings.ToLower(ext)]
}

// IsPlaylistExt returns true if the extension is a supported playlist format.
func IsPlaylistExt(ext string) bool {
	return playlistExts[strings.ToLower(ext)]
}

// SupportedExtsList returns a human-readable list of decodable formats.
func SupportedExtsList() string {
	return ".mp3, .wav, .flac, .ogg"
}

// Resolve turns a command-line argument into a playable audio file. A
// playlist resolves to its first playable entry.
func Resolve(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case IsSupportedExt(ext):
		return path, nil
	case IsPlaylistExt(ext):
		entries, err := ParseLocalPlaylist(path)
		if err != nil {
			return "", err
		}
		playable := FilterPlayableLocalPaths(entries)
		if len(playable) == 0 {
			return "", fmt.Errorf("playlist contains no playable entries")
		}
		return playable[0], nil
	default:
		return "", fmt.Errorf("unsupported format %s (supported: %s)", ext, SupportedExtsList())
	}
}
