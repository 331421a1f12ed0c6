// Package source provides landmark frame sources for the session
// controller: newline-delimited JSON from a reader or file, and the same
// stream arriving over a serial link from a pose-estimation board.
//
// Every source satisfies pipeline.FrameSource. Frames that fail to decode
// are logged and skipped; the stream keeps going.
package source
