package main

import (
	"fmt"
	"os"

	"github.com/dekarrin/rezi"

	"github.com/dekarrin/allstar/internal/dfacache"
)

// dumpSnapshots writes every decision's DFA (0..numDecisions-1) to path as
// a single REZI-encoded blob.
func dumpSnapshots(dfas *dfacache.Cache, numDecisions int, path string) error {
	snaps := make([]dfacache.Snapshot, numDecisions)
	for d := 0; d < numDecisions; d++ {
		snaps[d] = dfas.Dump(d)
	}

	data := encSnapshots(snaps)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// encSnapshots rezi-encodes a slice of dfacache.Snapshot. rezi's generic
// slice helpers require the element type's UnmarshalBinary to be satisfiable
// on a non-pointer type parameter, which dfacache.Snapshot (pointer
// receiver) isn't, so the slice is encoded manually instead.
func encSnapshots(sl []dfacache.Snapshot) []byte {
	if sl == nil {
		return rezi.EncInt(-1)
	}

	enc := make([]byte, 0)
	for i := range sl {
		enc = append(enc, rezi.EncBinary(sl[i])...)
	}

	return append(rezi.EncInt(len(enc)), enc...)
}

// decSnapshots is the counterpart of encSnapshots.
func decSnapshots(data []byte) ([]dfacache.Snapshot, int, error) {
	var totalConsumed int

	toConsume, n, err := rezi.DecInt(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode byte count: %w", err)
	}
	data = data[n:]
	totalConsumed += n

	if toConsume == 0 {
		return []dfacache.Snapshot{}, totalConsumed, nil
	} else if toConsume == -1 {
		return nil, totalConsumed, nil
	}

	if len(data) < toConsume {
		return nil, 0, fmt.Errorf("unexpected EOF")
	}

	sl := []dfacache.Snapshot{}
	var consumedInSlice int
	for consumedInSlice < toConsume {
		var snap dfacache.Snapshot
		n, err := rezi.DecBinary(data, &snap)
		if err != nil {
			return nil, totalConsumed, fmt.Errorf("decode item: %w", err)
		}
		totalConsumed += n
		consumedInSlice += n
		data = data[n:]

		sl = append(sl, snap)
	}

	return sl, totalConsumed, nil
}

// loadSnapshots reads a file written by dumpSnapshots and warm-starts dfas
// with every decision's recorded DFA.
func loadSnapshots(dfas *dfacache.Cache, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	snaps, n, err := decSnapshots(data)
	if err != nil {
		return fmt.Errorf("REZI decode: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("REZI decoded byte count mismatch; only consumed %d/%d bytes", n, len(data))
	}

	for _, snap := range snaps {
		dfas.Load(snap)
	}
	return nil
}
