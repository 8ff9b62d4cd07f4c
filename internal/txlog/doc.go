// Package txlog reads registry transaction logs (SYSTEM.LOG1, SYSTEM.LOG2)
// and replays them onto a private copy of a dirty hive.
//
// # Sequence Protocol
//
// Windows bumps the primary sequence number (offset 0x04) before it starts
// writing a hive and sets the secondary sequence number (offset 0x08) to the
// same value once the write completes. A hive whose two numbers differ was
// caught mid-write: the pages it is missing sit in the logs.
//
// # Log Layout
//
// A log starts with a copy of the hive base block (type 6 for new-format
// logs). Entries follow at offset 0x200:
//
//	Offset  Size  Field
//	0x00    4     "HvLE"
//	0x04    4     Entry size, multiple of 0x200
//	0x08    4     Flags
//	0x0C    4     Sequence number
//	0x10    4     Hive bins data size after this entry
//	0x14    4     Dirty page count
//	0x18    8     Hash of the entry data (not verified)
//	0x20    8     Hash of the entry header (not verified)
//	0x28    8*n   Dirty page references: offset, size
//	...           Page data, in reference order
//
// Old-format logs (a "DIRT" vector at 0x200) are not supported.
//
// # Replay
//
//	logs := []*txlog.Log{log1, log2}
//	fixed, res, err := txlog.Replay(hiveBytes, logs...)
//
// Replay never writes to its input. It applies every entry whose sequence
// continues the hive's secondary sequence, in order across logs, then
// stamps both sequence numbers with the last one applied and refreshes the
// checksum so the result reads as a clean hive.
package txlog
