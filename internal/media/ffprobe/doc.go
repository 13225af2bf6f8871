// Package ffprobe runs ffprobe and decodes its JSON output.
//
// Inspect returns the streams and container format of a file. Duration is
// the narrower query used to time narration fragments.
package ffprobe
