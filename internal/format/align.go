package format

// Align8 returns n aligned up to the next 8-byte boundary, the cell
// granularity.
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
func Align8(n int) int {
	return (n + CellAlignmentMask) &^ CellAlignmentMask
}

// AlignHBIN returns n aligned up to the next 4 KiB boundary, the bin and
// log page granularity.
func AlignHBIN(n int) int {
	return (n + HBINAlignmentMask) &^ HBINAlignmentMask
}
