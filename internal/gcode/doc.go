// Package gcode rewrites a toolpath program that carries one marked region so
// the region is printed several times, each copy lifted above the last.
//
// The rewrite is line oriented. Lines are never parsed beyond locating the Z
// coordinate of G1 moves inside the region:
//
//	prologue            copied verbatim
//	; <repetition>      dropped
//	region              replayed count times, Z shifted by index*(unit+gap)
//	; </repetition>     dropped
//	epilogue            copied verbatim
package gcode
