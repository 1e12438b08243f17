// Package ffmpeg renders a composition into an MP4 with the ffmpeg CLI.
//
// Each render gets a work directory holding the ASS caption file and the
// ffmpeg log. The directory is removed after a successful render unless
// render.keep_work_dirs is set, and always kept when the encode fails.
package ffmpeg
