// Package text keeps the text drawn by a frame.
//
// A Store holds two pools of shaped buffers:
//
//   - the cached pool, filled by CreateCachedText and addressed by a Handle.
//     Entries live as long as the Store and are re-shaped only when
//     UpdateCachedText is called;
//   - the immediate pool, filled by QueueText. Text queued this way is shaped
//     on every call and dropped by ClearFrame.
//
// Every queue call appends a request to the frame's draw list. Prepare
// resolves that list, in queue order, into shaping.TextArea values for the
// GPU text pipeline.
//
// Handles are dense, start at zero and are never reused or invalidated.
//
// Store is NOT thread-safe.
package text
