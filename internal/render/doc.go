// Package render assembles the upload-ready video for a composed track.
//
// The stage loops the item's cover art over the generated audio with ffmpeg,
// producing an H.264/AAC MP4 whose length follows the track. Cover selection
// falls back from the art saved during composition to the configured fallback
// image and finally to cover.jpg inside the covers directory; with no cover at
// all the item is parked for review rather than failed, since dropping an
// image into place is an operator fix.
//
// Every render is verified with ffprobe before the artifact is recorded: the
// file must carry one video and one audio stream and run within a couple of
// seconds of the composed track.
package render
