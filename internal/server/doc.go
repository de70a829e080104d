// Package server implements the HTTP API: session lifecycle, recording upload,
// transcript retrieval, phrase editing and clip download, plus health,
// statistics, configuration and Prometheus endpoints. The API can optionally
// be advertised on the local network over mDNS.
package server
