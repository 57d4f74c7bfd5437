// Package pixelbot repaints a square template onto a shared 1024-wide
// pixel canvas. Template images are quantized to the canvas palette,
// mapped to cell ids and replayed against the paint endpoint within the
// account's charge budget, with per-account progress kept on disk.
package pixelbot
