// Package session manages editing sessions. A session owns one uploaded
// recording, its stitched transcript and the phrase being assembled from it.
//
// Uploads are decoded, split into chunks no longer than the model accepts,
// transcribed in parallel and stitched back in chunk order. A newer upload
// to the same session supersedes an older one still in flight. Idle sessions
// are removed by a background cleanup routine.
package session
