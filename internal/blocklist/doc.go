// Package blocklist implements the block bookkeeping behind a fixed arena.
//
// A List partitions [0, capacity) into an ordered slice of block descriptors.
// Every byte belongs to exactly one block, and no two neighbouring blocks are
// both free: releases coalesce eagerly with the following and then the
// preceding block.
//
// # Allocation
//
// Allocate performs a first-fit search in ascending offset order. The chosen
// free block is either taken whole (exact fit) or split into an allocated
// prefix and a free remainder that is inserted directly after it.
//
// # Free index
//
// Offsets of free blocks are kept in a roaring bitmap. The first-fit search
// walks that bitmap in ascending order and only touches free descriptors,
// so long runs of live allocations do not slow it down. Because the bitmap
// is 32-bit, capacities are limited to MaxCapacity.
//
// The package manages offsets only; it never touches memory.
package blocklist
